package model_test

import (
	"testing"
	"time"

	"github.com/infermark/infermark/internal/model"
	"github.com/stretchr/testify/require"
)

func TestParseCron(t *testing.T) {
	type then struct {
		interval time.Duration
		fails    bool
	}
	cases := []struct {
		scenario string
		given    string
		then     then
	}{
		{"every_15_minutes", "*/15 * * * *", then{15 * time.Minute, false}},
		{"hourly_macro", "@hourly", then{time.Hour, false}},
		{"every_macro", "@every 5m", then{5 * time.Minute, false}},
		{"daily", "0 2 * * *", then{24 * time.Hour, false}},
		{"empty", "", then{0, true}},
		{"six_fields", "0 */2 * * * *", then{0, true}},
		{"garbage", "whenever", then{0, true}},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			interval, err := model.ParseCron(tc.given)
			if tc.then.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then.interval, interval)
		})
	}
}

func TestParseDuration(t *testing.T) {
	type then struct {
		d     time.Duration
		fails bool
	}
	cases := []struct {
		scenario string
		given    string
		then     then
	}{
		{"seconds", "120s", then{120 * time.Second, false}},
		{"minutes", "2m", then{2 * time.Minute, false}},
		{"combined", "1m30s", then{90 * time.Second, false}},
		{"days_hours", "1d12h", then{36 * time.Hour, false}},
		{"empty", "", then{0, true}},
		{"wrong_order", "30s1m", then{0, true}},
		{"go_style_fraction", "1.5h", then{0, true}},
		{"garbage", "soon", then{0, true}},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			d, err := model.ParseDuration(tc.given)
			if tc.then.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then.d, d)
		})
	}
}
