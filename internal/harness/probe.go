package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

var ErrReadinessTimeout = errors.New("timeout waiting for server")

// ReadinessProbe waits until an inference server accepts requests.
type ReadinessProbe interface {
	WaitReady(ctx context.Context, host string, port int) error
}

// Probe polls the OpenAI-style /v1/models endpoint at a fixed
// Interval until the body carries a non-empty model listing or
// Timeout elapses. No backoff; the poll load is negligible at this
// scale.
type Probe struct {
	Client   *http.Client
	Timeout  time.Duration
	Interval time.Duration
}

func NewProbe(timeout, interval time.Duration) *Probe {
	return &Probe{
		Client: &http.Client{
			Timeout: time.Second,
			// one fresh connection per poll, nothing kept alive to a
			// server that is about to be killed anyway
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		Timeout:  timeout,
		Interval: interval,
	}
}

// modelList is the shape of a /v1/models response; only the presence
// of entries matters.
type modelList struct {
	Data []json.RawMessage `json:"data"`
}

// WaitReady polls until the server is ready. Transport errors,
// connection refusals and malformed bodies mean "not yet ready" and
// keep the loop going. Returns an error wrapping ErrReadinessTimeout
// once Timeout elapsed, or ctx.Err on cancellation.
func (p *Probe) WaitReady(ctx context.Context, host string, port int) error {
	url := fmt.Sprintf("http://%s/v1/models", net.JoinHostPort(host, strconv.Itoa(port)))

	deadline := time.NewTimer(p.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(p.Interval)
	defer tick.Stop()

	for {
		if p.ready(ctx, url) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w at %s", ErrReadinessTimeout, url)
		case <-tick.C:
		}
	}
}

func (p *Probe) ready(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return false
	}
	return len(list.Data) > 0
}
