package timetable

import (
	"context"
	"time"

	"github.com/noah-isme/timetable-engine/pkg/ilp"
)

// Engine is the scheduling engine's one entry point. It holds no mutable
// state between calls; the zero value with a Solver set is ready to use,
// and independent goroutines may call Schedule concurrently as long as
// each passes its own InputModel.
type Engine struct {
	// Solver is the ILP backend. A nil Solver is treated as "the ILP
	// backend could not be initialised" and produces a fatal
	// SolverUnavailable error — the engine never silently substitutes
	// the fallback heuristic for a missing solver, only for a solver
	// result it cannot use.
	Solver ilp.Solver
	// TimeLimit bounds the ILP driver's wall-clock budget. Zero means
	// DefaultILPTimeLimit.
	TimeLimit time.Duration
}

// NewEngine returns an Engine backed by the in-process branch-and-bound
// solver with the default time limit.
func NewEngine() *Engine {
	return &Engine{Solver: ilp.NewBranchAndBound(), TimeLimit: DefaultILPTimeLimit}
}

// Schedule runs the full pipeline — validate, index demand, enumerate
// variables, build constraints, submit to the ILP driver, extract a
// result or fall back to the greedy heuristic, derive lecturer schedules,
// — and returns a Result. A non-nil error is always fatal
// (InputInvariantViolation, SolverUnavailable or InternalConsistency);
// every other condition is absorbed into Result.Warnings and a
// Result.Status of Fallback or Empty.
func (e *Engine) Schedule(ctx context.Context, model InputModel) (*Result, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if e.Solver == nil {
		return nil, newError(KindSolverUnavailable, "no ILP solver backend configured")
	}

	demand := BuildDemandIndex(model)
	warnings := make([]Warning, 0, len(demand.UnknownCodes))
	for _, code := range demand.UnknownCodes {
		warnings = append(warnings, newWarning(WarningUnknownCourseReference, "request references unknown course code %q", code))
	}

	registry := BuildVariableRegistry(model, demand)

	if registry.TotalVariables() == 0 {
		schedule := NewSchedule()
		deriveLecturerSchedules(model, schedule)
		return &Result{Schedule: schedule, Status: StatusOptimal, Objective: 0, Warnings: warnings}, nil
	}

	problem := BuildProblem(model, registry)
	xOffset := make([]int, len(registry.XVars))
	for i := range registry.XVars {
		xOffset[i] = i
	}
	yOffset := make([]int, len(registry.YVars))
	for i := range registry.YVars {
		yOffset[i] = len(registry.XVars) + i
	}

	timeLimit := e.TimeLimit
	if timeLimit <= 0 {
		timeLimit = DefaultILPTimeLimit
	}

	outcome := runDriver(ctx, e.Solver, problem, timeLimit)
	if outcome.usable {
		schedule, err := ExtractResult(registry, xOffset, yOffset, outcome.values)
		if err != nil {
			return nil, err
		}
		deriveLecturerSchedules(model, schedule)
		status := StatusFeasible
		if outcome.status == ilp.StatusOptimal {
			status = StatusOptimal
		}
		return &Result{Schedule: schedule, Status: status, Objective: outcome.objective, Warnings: warnings}, nil
	}

	warnings = append(warnings, outcome.warning)
	schedule := runFallback(model, demand)

	totalPlaced := 0
	for _, blocks := range schedule.CourseBlocks {
		totalPlaced += len(blocks)
	}
	if totalPlaced == 0 {
		warnings = append(warnings, newWarning(WarningFallbackEmpty, "fallback heuristic scheduled zero courses"))
		return &Result{Schedule: schedule, Status: StatusEmpty, Objective: 0, Warnings: warnings}, nil
	}

	resolvedWeight := fallbackObjective(model, schedule)
	return &Result{Schedule: schedule, Status: StatusFallback, Objective: resolvedWeight, Warnings: warnings}, nil
}

// fallbackObjective recomputes the same weighted-request objective the
// ILP would optimise, so a Fallback-status Result carries a comparable
// Objective value even though no solver produced one.
func fallbackObjective(model InputModel, schedule *Schedule) float64 {
	total := 0.0
	for _, s := range model.Students {
		studentSchedule, ok := schedule.StudentSchedules[s.ID]
		if !ok {
			continue
		}
		assigned := map[string]bool{}
		for _, code := range studentSchedule {
			assigned[code] = true
		}
		for _, code := range s.Required {
			if assigned[code] {
				total += float64(PriorityRequired)
			}
		}
		for _, code := range s.Requested {
			if assigned[code] {
				total += float64(PriorityRequested)
			}
		}
		for _, code := range s.Recommended {
			if assigned[code] {
				total += float64(PriorityRecommended)
			}
		}
	}
	return total
}
