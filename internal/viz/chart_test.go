package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/episim/internal/ode"
	"github.com/san-kum/episim/internal/scenario"
)

func TestSubtitle(t *testing.T) {
	sc, ok := scenario.Preset("eradication")
	if !ok {
		t.Fatal("missing preset")
	}

	got := Subtitle(sc)
	for _, want := range []string{"beta=0.80", "gamma=0.03", "pi=0.40", "P=0.90", "s0=1.00", "i0=0.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("subtitle missing %q: %s", want, got)
		}
	}
}

func TestChartTrajectory(t *testing.T) {
	sc, _ := scenario.Preset("eradication")
	traj := &ode.Trajectory{
		Times:  []float64{0, 0.1, 0.2},
		States: []ode.State{{1, 0, 0}, {0.96, 0, 0.04}, {0.93, 0, 0.07}},
	}

	out := ChartTrajectory(sc, traj)
	if !strings.Contains(out, "eradication") {
		t.Error("chart missing scenario name")
	}
	for _, name := range []string{"susceptible", "infected", "recovered"} {
		if !strings.Contains(out, name) {
			t.Errorf("chart missing %s series", name)
		}
	}
}
