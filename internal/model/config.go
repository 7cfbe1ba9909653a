package model

import (
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

// Enum helpers (optional).
const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"

	FrameworkVLLM   = "vllm"
	FrameworkSGLang = "sglang"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version    int       `json:"version" yaml:"version"` // fixed 0 for now
	Port       int       `json:"port" yaml:"port"`
	Model      string    `json:"model" yaml:"model"`
	CudaDevice string    `json:"cuda_device,omitempty" yaml:"cuda_device,omitempty"`
	Host       string    `json:"host" yaml:"host"`
	Jobs       []string  `json:"jobs" yaml:"jobs"` // execution order is meaningful
	Readiness  Readiness `json:"readiness" yaml:"readiness"`
	Service    Service   `json:"service" yaml:"service"`
}

// Readiness probe settings. Durations use the d/h/m/s segment format,
// e.g. "2m" or "1m30s".
type Readiness struct {
	Timeout  string `json:"timeout" yaml:"timeout"`
	Interval string `json:"interval" yaml:"interval"`
}

// Service settings: manual mode runs the sequence once, timer mode on
// a schedule.
type Service struct {
	Mode     string         `json:"mode" yaml:"mode"`
	Verbose  bool           `json:"verbose" yaml:"verbose"`
	Schedule *TimerSchedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// TimerSchedule configures the timer mode: either a 5-field cron
// expression or a fixed duration between runs.
type TimerSchedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// LoadConfig validates YAML from r against the CUE schema and decodes
// it into Config. Schema defaults are applied to absent fields.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// DefaultConfig is the configuration written on first run when no
// config file exists yet.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Port:    8080,
		Model:   "meta-llama/Llama-3.1-8B-Instruct",
		Host:    "localhost",
		Jobs:    []string{FrameworkVLLM, FrameworkSGLang},
		Readiness: Readiness{
			Timeout:  "2m",
			Interval: "2s",
		},
		Service: Service{
			Mode: ServiceModeManual,
		},
	}
}

// ReadinessTimeout returns the parsed probe timeout.
func (c Config) ReadinessTimeout() (time.Duration, error) {
	return ParseDuration(c.Readiness.Timeout)
}

// ReadinessInterval returns the parsed probe poll interval.
func (c Config) ReadinessInterval() (time.Duration, error) {
	return ParseDuration(c.Readiness.Interval)
}
