package align

// Solver holds the alignment penalties.
type Solver struct {
	// SkipPenalty is added for every unmatched cue on either track; <= 0.
	SkipPenalty float64
	// MinMatchScore is the floor below which a pair may not be matched.
	MinMatchScore float64
	// ShareTolerance lets an unmatched source cue reuse a neighbour's target
	// when its score is within this distance of the neighbour's.
	ShareTolerance float64
	// MaxCells caps len(source) * len(target).
	MaxCells int64
}

// DefaultSolver returns the default penalties.
func DefaultSolver() Solver {
	return Solver{
		SkipPenalty:    -0.05,
		MinMatchScore:  0.25,
		ShareTolerance: 0.05,
		MaxCells:       4_000_000,
	}
}

// ScoreFunc returns the combined score of source i against target j. It must
// be pure: Solve may call it more than once for the same pair.
type ScoreFunc func(i, j int) float64

// Assignment is the solver output. Match[i] is the target index of source i,
// or -1 when unmatched. Score[i] is the combined score of that match.
// Shared[i] marks a source cue attached to a target already matched by a
// neighbouring source cue.
type Assignment struct {
	Match  []int
	Score  []float64
	Shared []bool
	Total  float64
}

const (
	moveDiagonal uint8 = iota + 1
	moveSkipTarget
	moveSkipSource
)

const tieEpsilon = 1e-12

// Solve finds the monotonic assignment maximizing the sum of matched scores
// plus SkipPenalty per unmatched cue.
//
// The table is filled over suffixes: best[i][j] is the optimum for
// source[i:] against target[j:]. Reading the path forward from (0,0) means
// that among equal-total paths the earliest decision wins, with the
// preference order match, skip target, skip source. Lower source cues are
// therefore paired with lower target cues first, and the output is fully
// deterministic.
func (s Solver) Solve(n, m int, score ScoreFunc) (Assignment, error) {
	if err := checkCells(n, m, s.MaxCells); err != nil {
		return Assignment{}, err
	}
	out := Assignment{
		Match:  make([]int, n),
		Score:  make([]float64, n),
		Shared: make([]bool, n),
	}
	for i := range out.Match {
		out.Match[i] = -1
	}
	if n == 0 || m == 0 {
		out.Total = float64(n+m) * s.SkipPenalty
		return out, nil
	}

	cols := m + 1
	best := make([]float64, (n+1)*cols)
	moves := make([]uint8, (n+1)*cols)
	at := func(i, j int) int { return i*cols + j }

	for j := m - 1; j >= 0; j-- {
		best[at(n, j)] = best[at(n, j+1)] + s.SkipPenalty
		moves[at(n, j)] = moveSkipTarget
	}
	for i := n - 1; i >= 0; i-- {
		best[at(i, m)] = best[at(i+1, m)] + s.SkipPenalty
		moves[at(i, m)] = moveSkipSource
		for j := m - 1; j >= 0; j-- {
			value := best[at(i, j+1)] + s.SkipPenalty
			move := moveSkipTarget
			if c := score(i, j); c >= s.MinMatchScore {
				if diag := best[at(i+1, j+1)] + c; diag >= value-tieEpsilon {
					value, move = diag, moveDiagonal
				}
			}
			if up := best[at(i+1, j)] + s.SkipPenalty; up > value+tieEpsilon {
				value, move = up, moveSkipSource
			}
			best[at(i, j)] = value
			moves[at(i, j)] = move
		}
	}
	out.Total = best[at(0, 0)]

	for i, j := 0, 0; i < n && j <= m; {
		switch moves[at(i, j)] {
		case moveDiagonal:
			out.Match[i] = j
			out.Score[i] = score(i, j)
			i++
			j++
		case moveSkipTarget:
			j++
		default:
			i++
		}
	}

	s.shareTargets(&out, score)
	return out, nil
}

// shareTargets attaches unmatched source cues to the target of the nearest
// matched source cue, previous first, when the score clears MinMatchScore and
// is within ShareTolerance of that neighbour's own score. Targets assigned in
// source order never decrease.
func (s Solver) shareTargets(out *Assignment, score ScoreFunc) {
	base := append([]int(nil), out.Match...)
	baseScore := append([]float64(nil), out.Score...)
	n := len(base)

	prev, floor := -1, -1
	for i := 0; i < n; i++ {
		if base[i] >= 0 {
			prev, floor = i, base[i]
			continue
		}
		neighbours := make([]int, 0, 2)
		if prev >= 0 {
			neighbours = append(neighbours, prev)
		}
		for k := i + 1; k < n; k++ {
			if base[k] >= 0 {
				neighbours = append(neighbours, k)
				break
			}
		}
		for _, k := range neighbours {
			target := base[k]
			if target < floor {
				continue
			}
			c := score(i, target)
			if c >= s.MinMatchScore && c >= baseScore[k]-s.ShareTolerance {
				out.Match[i] = target
				out.Score[i] = c
				out.Shared[i] = true
				floor = target
				break
			}
		}
	}
}
