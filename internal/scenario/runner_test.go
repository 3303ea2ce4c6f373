package scenario_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/ode"
	"github.com/san-kum/episim/internal/scenario"
)

var _ = Describe("Presets", func() {
	It("defines the four stock cases in order", func() {
		Expect(scenario.PresetNames()).To(Equal([]string{
			"eradication", "eradication-outbreak", "endemic", "no-vaccination",
		}))
	})

	It("produces only valid scenarios", func() {
		for _, sc := range scenario.Presets() {
			Expect(sc.Validate()).To(Succeed(), sc.Name)
			Expect(sc.Times).To(HaveLen(101))
			Expect(sc.Horizon()).To(BeNumerically("~", 10.0, 1e-12))
			Expect(sc.Init.Sum()).To(BeNumerically("~", 1.0, 1e-12))
		}
	})
})

var _ = Describe("Runner", func() {
	var (
		runner *scenario.Runner
		batch  *scenario.Batch
	)

	BeforeEach(func() {
		runner = scenario.NewRunner(integrators.DefaultOptions(), zap.NewNop())
		batch = runner.Run(context.Background(), scenario.Presets())
	})

	It("produces one outcome per scenario with no failures", func() {
		Expect(batch.Outcomes).To(HaveLen(4))
		Expect(batch.Failed()).To(BeEmpty())
	})

	It("hits every requested report time exactly", func() {
		for _, out := range batch.Outcomes {
			Expect(out.Trajectory.Times).To(Equal(out.Scenario.Times))
			Expect(out.Trajectory.States).To(HaveLen(len(out.Scenario.Times)))
		}
	})

	It("conserves the population fraction within 1e-3", func() {
		for _, out := range batch.Outcomes {
			Expect(out.Drift).To(BeNumerically("<", 1e-3), out.Scenario.Name)
		}
	})

	Describe("eradication without initial infection", func() {
		It("never introduces infection and converges toward the vaccinated equilibrium", func() {
			out, ok := batch.Find("eradication")
			Expect(ok).To(BeTrue())

			traj := out.Trajectory
			for k := range traj.Times {
				Expect(traj.States[k][1]).To(BeZero())
			}

			// s(t) = (1-P) + (s0-(1-P))*exp(-pi*t) with i identically zero.
			p := out.Scenario.Params
			for k, t := range traj.Times {
				want := (1 - p.Coverage) + (1-(1-p.Coverage))*math.Exp(-p.Pi*t)
				Expect(traj.States[k][0]).To(BeNumerically("~", want, 1e-4))
			}

			final := traj.States[traj.Len()-1]
			Expect(final[2]).To(BeNumerically("~", p.Coverage*(1-math.Exp(-p.Pi*10)), 1e-3))
		})
	})

	Describe("eradication with an outbreak in progress", func() {
		It("drives the infection out", func() {
			out, ok := batch.Find("eradication-outbreak")
			Expect(ok).To(BeTrue())

			final := out.Trajectory.States[out.Trajectory.Len()-1]
			Expect(final[1]).To(BeNumerically("<", 0.02))
			Expect(final[1]).To(BeNumerically("<", out.Scenario.Init[1]/10))
		})
	})

	Describe("endemic persistence", func() {
		It("keeps the infection alive below the critical coverage", func() {
			for _, name := range []string{"endemic", "no-vaccination"} {
				out, ok := batch.Find(name)
				Expect(ok).To(BeTrue())

				Expect(out.Scenario.Params.Rv()).To(BeNumerically(">", 1), name)
				final := out.Trajectory.States[out.Trajectory.Len()-1]
				Expect(final[1]).To(BeNumerically(">", 0.01), name)
			}
		})

		It("distinguishes no-vaccination from the eradication cases", func() {
			endemic, _ := batch.Find("no-vaccination")
			eradicated, _ := batch.Find("eradication-outbreak")

			iEnd := endemic.Trajectory.States[endemic.Trajectory.Len()-1][1]
			iErad := eradicated.Trajectory.States[eradicated.Trajectory.Len()-1][1]
			Expect(iEnd).To(BeNumerically(">", 10*iErad))

			// Every sampled infected fraction stays well above zero.
			for _, x := range endemic.Trajectory.States {
				Expect(x[1]).To(BeNumerically(">", 0.05))
			}
		})
	})

	Describe("partial failure", func() {
		It("records a bad scenario without aborting the rest", func() {
			bad := scenario.New("bad", epidemic.Params{Beta: 0.8, Gamma: 0.03, Pi: 0.4, Coverage: 1.5},
				1.0, 0.0, 0.0, 10, 101)
			scs := append([]scenario.Scenario{bad}, scenario.Presets()...)

			b := runner.Run(context.Background(), scs)
			Expect(b.Outcomes).To(HaveLen(5))

			failed := b.Failed()
			Expect(failed).To(HaveLen(1))
			Expect(failed[0].Scenario.Name).To(Equal("bad"))
			Expect(failed[0].Err).To(MatchError(ode.ErrParameterBounds))
			Expect(failed[0].Trajectory).To(BeNil())

			for _, name := range scenario.PresetNames() {
				out, ok := b.Find(name)
				Expect(ok).To(BeTrue())
				Expect(out.Err).NotTo(HaveOccurred())
				Expect(out.Trajectory).NotTo(BeNil())
			}
		})
	})

	Describe("RunParallel", func() {
		It("matches the sequential results", func() {
			par := runner.RunParallel(context.Background(), scenario.Presets())
			Expect(par.Failed()).To(BeEmpty())

			for i, out := range par.Outcomes {
				seq := batch.Outcomes[i]
				Expect(out.Scenario.Name).To(Equal(seq.Scenario.Name))
				Expect(out.Trajectory.Times).To(Equal(seq.Trajectory.Times))
				for k := range seq.Trajectory.States {
					Expect(out.Trajectory.States[k]).To(Equal(seq.Trajectory.States[k]))
				}
			}
		})
	})
})

var _ = Describe("Scenario validation", func() {
	It("rejects malformed grids before integration", func() {
		sc := scenario.New("grid", epidemic.Params{Beta: 0.8, Gamma: 0.03, Pi: 0.4}, 1, 0, 0, 10, 101)
		sc.Times = []float64{0, 1, 1}
		Expect(sc.Validate()).To(MatchError(ode.ErrInvalidGrid))

		sc.Times = nil
		Expect(sc.Validate()).To(MatchError(ode.ErrInvalidGrid))
	})

	It("rejects negative initial fractions", func() {
		sc := scenario.New("init", epidemic.Params{Beta: 0.8, Gamma: 0.03, Pi: 0.4}, -0.1, 0.5, 0.6, 10, 101)
		Expect(sc.Validate()).To(MatchError(ode.ErrParameterBounds))
	})
})
