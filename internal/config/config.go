package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/scenario"
)

const (
	DefaultHorizon  = 10.0
	DefaultPoints   = 101
	DefaultAbsTol   = 1e-6
	DefaultRelTol   = 1e-6
	DefaultMinStep  = 1e-10
	DefaultMaxSteps = 100000
)

type Config struct {
	Solver    SolverConfig     `yaml:"solver"`
	Horizon   float64          `yaml:"horizon"`
	Points    int              `yaml:"points"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

type SolverConfig struct {
	AbsTol   float64 `yaml:"abs_tol"`
	RelTol   float64 `yaml:"rel_tol"`
	MinStep  float64 `yaml:"min_step"`
	MaxSteps int     `yaml:"max_steps"`
}

type ScenarioConfig struct {
	Name     string     `yaml:"name"`
	Beta     float64    `yaml:"beta"`
	Gamma    float64    `yaml:"gamma"`
	Pi       float64    `yaml:"pi"`
	Coverage float64    `yaml:"coverage"`
	Init     InitConfig `yaml:"init"`
}

type InitConfig struct {
	S float64 `yaml:"s"`
	I float64 `yaml:"i"`
	R float64 `yaml:"r"`
}

func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			AbsTol:   DefaultAbsTol,
			RelTol:   DefaultRelTol,
			MinStep:  DefaultMinStep,
			MaxSteps: DefaultMaxSteps,
		},
		Horizon: DefaultHorizon,
		Points:  DefaultPoints,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SolverOptions maps the solver section onto integrator options.
func (c *Config) SolverOptions() integrators.Options {
	return integrators.Options{
		AbsTol:   c.Solver.AbsTol,
		RelTol:   c.Solver.RelTol,
		MinStep:  c.Solver.MinStep,
		MaxSteps: c.Solver.MaxSteps,
	}
}

// ScenarioList builds the configured scenarios; with none configured, the
// stock presets resampled to the configured horizon and point count.
func (c *Config) ScenarioList() []scenario.Scenario {
	if len(c.Scenarios) == 0 {
		presets := scenario.Presets()
		for i := range presets {
			presets[i].Times = scenario.Uniform(presets[i].T0, c.Horizon, c.Points)
		}
		return presets
	}

	scenarios := make([]scenario.Scenario, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		p := epidemic.Params{Beta: sc.Beta, Gamma: sc.Gamma, Pi: sc.Pi, Coverage: sc.Coverage}
		scenarios = append(scenarios, scenario.New(sc.Name, p, sc.Init.S, sc.Init.I, sc.Init.R, c.Horizon, c.Points))
	}
	return scenarios
}
