package align

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"subalign/internal/services"
)

func matrixScore(m [][]float64) ScoreFunc {
	return func(i, j int) float64 { return m[i][j] }
}

func TestSolveDiagonal(t *testing.T) {
	scores := [][]float64{
		{0.9, 0.1, 0.1},
		{0.1, 0.9, 0.1},
		{0.1, 0.1, 0.9},
	}
	got, err := DefaultSolver().Solve(3, 3, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(got.Match, []int{0, 1, 2}) {
		t.Fatalf("Match = %v, want [0 1 2]", got.Match)
	}
	if !approx(got.Total, 2.7) {
		t.Fatalf("Total = %v, want 2.7", got.Total)
	}
}

func TestSolveSkipsExtraTargets(t *testing.T) {
	// Target 1 is an extra line with no counterpart.
	scores := [][]float64{
		{0.9, 0.2, 0.1},
		{0.1, 0.2, 0.8},
	}
	got, err := DefaultSolver().Solve(2, 3, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(got.Match, []int{0, 2}) {
		t.Fatalf("Match = %v, want [0 2]", got.Match)
	}
}

func TestSolveLeavesPoorMatchesUnmatched(t *testing.T) {
	solver := DefaultSolver()
	solver.ShareTolerance = 0
	scores := [][]float64{
		{0.9, 0.1},
		{0.2, 0.1},
		{0.1, 0.9},
	}
	got, err := solver.Solve(3, 2, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(got.Match, []int{0, -1, 1}) {
		t.Fatalf("Match = %v, want [0 -1 1]", got.Match)
	}
}

func TestSolveTieBreakPrefersEarliestTarget(t *testing.T) {
	scores := [][]float64{{0.9, 0.9, 0.9}}
	got, err := DefaultSolver().Solve(1, 3, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got.Match[0] != 0 {
		t.Fatalf("expected first target on tie, got %d", got.Match[0])
	}

	// Two sources, two equally good targets each: lower pairs with lower.
	scores = [][]float64{{0.8, 0.8}, {0.8, 0.8}}
	got, err = DefaultSolver().Solve(2, 2, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(got.Match, []int{0, 1}) {
		t.Fatalf("Match = %v, want [0 1]", got.Match)
	}
}

func TestSolveSharesTargetWithinTolerance(t *testing.T) {
	// One long target line split across two source cues.
	scores := [][]float64{{0.85}, {0.83}}
	got, err := DefaultSolver().Solve(2, 1, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(got.Match, []int{0, 0}) {
		t.Fatalf("Match = %v, want [0 0]", got.Match)
	}
	if got.Shared[0] || !got.Shared[1] {
		t.Fatalf("Shared = %v, want [false true]", got.Shared)
	}

	solver := DefaultSolver()
	solver.ShareTolerance = 0.01
	got, err = solver.Solve(2, 1, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got.Match[1] != -1 {
		t.Fatalf("expected no sharing outside tolerance, got %v", got.Match)
	}
}

func TestSolveSharingStaysMonotonic(t *testing.T) {
	// Sources 1 and 2 sit between matched sources 0 and 3. Source 1 fits the
	// next target, source 2 the previous one; only a non-crossing share is kept.
	scores := [][]float64{
		{0.9, 0.0},
		{0.0, 0.88},
		{0.88, 0.0},
		{0.0, 0.9},
	}
	solver := DefaultSolver()
	solver.MinMatchScore = 0.5
	got, err := solver.Solve(4, 2, matrixScore(scores))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	assertMonotonic(t, got.Match)
}

func TestSolveEmptyAndLimits(t *testing.T) {
	got, err := DefaultSolver().Solve(2, 0, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(got.Match, []int{-1, -1}) {
		t.Fatalf("Match = %v, want all unmatched", got.Match)
	}

	solver := DefaultSolver()
	solver.MaxCells = 6
	_, err = solver.Solve(3, 3, func(int, int) float64 { t.Fatal("score must not be called"); return 0 })
	var limit *ResourceLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected ResourceLimitError, got %v", err)
	}
	if limit.Source != 3 || limit.Target != 3 || limit.MaxCells != 6 {
		t.Fatalf("unexpected limit details: %+v", limit)
	}
	if !errors.Is(err, services.ErrResourceLimit) {
		t.Fatalf("expected ErrResourceLimit marker, got %v", err)
	}
}

func TestSolvePropertiesOnRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	solver := DefaultSolver()
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(8)
		m := 1 + rng.IntN(8)
		scores := make([][]float64, n)
		for i := range scores {
			scores[i] = make([]float64, m)
			for j := range scores[i] {
				scores[i][j] = math.Round(rng.Float64()*10) / 10
			}
		}

		first, err := solver.Solve(n, m, matrixScore(scores))
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		second, _ := solver.Solve(n, m, matrixScore(scores))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("trial %d: solver is not deterministic", trial)
		}
		if len(first.Match) != n {
			t.Fatalf("trial %d: %d matches for %d sources", trial, len(first.Match), n)
		}
		assertMonotonic(t, first.Match)

		// The path read back must account for the reported optimum.
		used := map[int]bool{}
		sum, unmatched := 0.0, 0
		for i, j := range first.Match {
			if j < 0 || first.Shared[i] {
				unmatched++
				continue
			}
			if scores[i][j] < solver.MinMatchScore {
				t.Fatalf("trial %d: matched below floor", trial)
			}
			used[j] = true
			sum += scores[i][j]
		}
		unmatched += m - len(used)
		if want := sum + float64(unmatched)*solver.SkipPenalty; !approx(first.Total, want) {
			t.Fatalf("trial %d: Total %v does not match path %v", trial, first.Total, want)
		}
		if best := bruteForce(scores, solver); !approx(first.Total, best) {
			t.Fatalf("trial %d: Total %v, brute force optimum %v", trial, first.Total, best)
		}
	}
}

// bruteForce enumerates every monotonic partial matching.
func bruteForce(scores [][]float64, s Solver) float64 {
	n, m := len(scores), len(scores[0])
	var walk func(i, j int) float64
	walk = func(i, j int) float64 {
		if i == n {
			return float64(m-j) * s.SkipPenalty
		}
		best := walk(i+1, j) + s.SkipPenalty
		for k := j; k < m; k++ {
			if scores[i][k] < s.MinMatchScore {
				continue
			}
			v := float64(k-j)*s.SkipPenalty + scores[i][k] + walk(i+1, k+1)
			best = math.Max(best, v)
		}
		return best
	}
	return walk(0, 0)
}

func assertMonotonic(t *testing.T, match []int) {
	t.Helper()
	last := -1
	for i, j := range match {
		if j < 0 {
			continue
		}
		if j < last {
			t.Fatalf("match crosses at source %d: %v", i, match)
		}
		last = j
	}
}
