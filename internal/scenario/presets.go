package scenario

import "github.com/san-kum/episim/internal/epidemic"

// The stock cases share rates beta=0.8, gamma=0.03, pi=0.4; the eradication
// threshold for these rates is coverage 1-1/R0 ~= 0.46. Horizon 10 with 101
// report points (step 0.1).
const (
	DefaultHorizon = 10.0
	DefaultPoints  = 101
)

var stockRates = epidemic.Params{Beta: 0.8, Gamma: 0.03, Pi: 0.4}

func withCoverage(p float64) epidemic.Params {
	r := stockRates
	r.Coverage = p
	return r
}

// Presets returns the four stock scenarios, in a fixed order.
func Presets() []Scenario {
	return []Scenario{
		New("eradication", withCoverage(0.9), 1.0, 0.0, 0.0, DefaultHorizon, DefaultPoints),
		New("eradication-outbreak", withCoverage(0.9), 0.8, 0.2, 0.0, DefaultHorizon, DefaultPoints),
		New("endemic", withCoverage(0.4), 0.8, 0.2, 0.0, DefaultHorizon, DefaultPoints),
		New("no-vaccination", withCoverage(0.0), 0.8, 0.2, 0.0, DefaultHorizon, DefaultPoints),
	}
}

// Preset looks up a stock scenario by name.
func Preset(name string) (Scenario, bool) {
	for _, sc := range Presets() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

func PresetNames() []string {
	presets := Presets()
	names := make([]string, 0, len(presets))
	for _, sc := range presets {
		names = append(names, sc.Name)
	}
	return names
}
