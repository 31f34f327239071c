package ilp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchAndBoundSolvesSimpleKnapsack(t *testing.T) {
	p := &Problem{}
	a := p.AddVariable("a", 10)
	b := p.AddVariable("b", 6)
	c := p.AddVariable("c", 4)
	p.AddConstraint("budget", []Term{{VarIndex: a, Coeff: 5}, {VarIndex: b, Coeff: 4}, {VarIndex: c, Coeff: 3}}, LessOrEqual, 7)

	solver := NewBranchAndBound()
	result := solver.Solve(context.Background(), p, time.Second)

	require.Equal(t, StatusOptimal, result.Status)
	assert.InDelta(t, 10, result.Objective, 1e-6)
	assert.Equal(t, []float64{1, 0, 0}, result.Values)
}

func TestBranchAndBoundReportsInfeasible(t *testing.T) {
	p := &Problem{}
	x := p.AddVariable("x", 1)
	y := p.AddVariable("y", 1)
	p.AddConstraint("atLeastBoth", []Term{{VarIndex: x, Coeff: 1}, {VarIndex: y, Coeff: 1}}, GreaterOrEqual, 2)
	p.AddConstraint("atMostOne", []Term{{VarIndex: x, Coeff: 1}, {VarIndex: y, Coeff: 1}}, LessOrEqual, 1)

	solver := NewBranchAndBound()
	result := solver.Solve(context.Background(), p, 200*time.Millisecond)

	assert.Equal(t, StatusInfeasible, result.Status)
}

func TestBranchAndBoundRespectsTimeLimitOnLargeModel(t *testing.T) {
	p := &Problem{}
	varIdx := make([]int, 0, 4000)
	for i := 0; i < 4000; i++ {
		varIdx = append(varIdx, p.AddVariable("v", 1))
	}
	terms := make([]Term, len(varIdx))
	for i, v := range varIdx {
		terms[i] = Term{VarIndex: v, Coeff: 1}
	}
	p.AddConstraint("cap", terms, LessOrEqual, 3)

	solver := &BranchAndBound{MaxNodes: 50}
	result := solver.Solve(context.Background(), p, 50*time.Millisecond)

	assert.Contains(t, []Status{StatusTimeLimit, StatusFeasible, StatusOptimal}, result.Status)
}

func TestProblemValidateRejectsEmptyConstraint(t *testing.T) {
	p := &Problem{}
	p.AddVariable("x", 1)
	p.Constraints = append(p.Constraints, Constraint{Name: "empty", Relation: LessOrEqual, Bound: 0})

	err := p.Validate()
	assert.Error(t, err)
}

func TestProblemValidateRejectsOutOfRangeTerm(t *testing.T) {
	p := &Problem{}
	p.AddVariable("x", 1)
	p.AddConstraint("bad", []Term{{VarIndex: 5, Coeff: 1}}, LessOrEqual, 1)

	err := p.Validate()
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Optimal", StatusOptimal.String())
	assert.Equal(t, "TimeLimit", StatusTimeLimit.String())
}
