package timetable

import (
	"context"
	"time"

	"github.com/noah-isme/timetable-engine/pkg/ilp"
)

// DefaultILPTimeLimit is the default wall-clock budget handed to the ILP
// driver when a caller does not override it.
const DefaultILPTimeLimit = 300 * time.Second

// driverOutcome is the ILP driver's verdict: either a usable solution or a
// reason the fallback heuristic must run instead.
type driverOutcome struct {
	usable    bool
	status    ilp.Status
	values    []float64
	objective float64
	warning   Warning
}

// runDriver submits p to solver with the given time limit and decides
// whether the result is usable. Fallback triggers, per the contract: the
// terminal status is not in {Optimal, Feasible}, the objective is
// effectively absent, or the objective is below 1 (essentially no request
// fulfilled).
func runDriver(ctx context.Context, solver ilp.Solver, p *ilp.Problem, timeLimit time.Duration) driverOutcome {
	result := solver.Solve(ctx, p, timeLimit)

	switch result.Status {
	case ilp.StatusOptimal, ilp.StatusFeasible:
		if result.Values == nil || result.Objective < 1 {
			return driverOutcome{usable: false, warning: newWarning(WarningSolverZeroObjective, "ILP status %s but objective %.2f < 1", result.Status, result.Objective)}
		}
		return driverOutcome{usable: true, status: result.Status, values: result.Values, objective: result.Objective}
	case ilp.StatusTimeLimit:
		return driverOutcome{usable: false, warning: newWarning(WarningSolverTimeout, "ILP hit its %s time limit without a usable solution", timeLimit)}
	case ilp.StatusInfeasible:
		return driverOutcome{usable: false, warning: newWarning(WarningSolverInfeasible, "ILP reported Infeasible")}
	default:
		return driverOutcome{usable: false, warning: newWarning(WarningSolverInfeasible, "ILP reported %s", result.Status)}
	}
}
