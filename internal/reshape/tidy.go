// Package reshape converts wide trajectories into the long-format view
// consumed by plotting collaborators.
package reshape

import (
	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/ode"
)

// Record is one row of the long-format table: time, compartment name, value.
type Record struct {
	Time     float64 `json:"time"`
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

// Melt flattens a trajectory into long form: three records per report time,
// ordered by time and then by the fixed compartment order, so the transform
// is deterministic and idempotent.
func Melt(traj *ode.Trajectory) []Record {
	records := make([]Record, 0, traj.Len()*len(epidemic.Compartments))
	for i, t := range traj.Times {
		for j, name := range epidemic.Compartments {
			records = append(records, Record{Time: t, Variable: name, Value: traj.States[i][j]})
		}
	}
	return records
}
