package artifact

import (
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one unit of a batch.
type Outcome struct {
	Unit   string `json:"unit"`
	Output string `json:"output,omitempty"`
	Err    error  `json:"-"`
}

// OK reports whether the unit succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// RunBatch applies fn to every unit and returns one Outcome per unit in input
// order. A failing unit never stops its siblings. Up to parallel units run at
// once; callers must not pass two units that share a directory when
// parallel > 1.
func RunBatch(units []string, parallel int, fn func(unit string) (string, error)) []Outcome {
	outcomes := make([]Outcome, len(units))
	if parallel < 1 {
		parallel = 1
	}

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, unit := range units {
		g.Go(func() error {
			out, err := fn(unit)
			outcomes[i] = Outcome{Unit: unit, Output: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Failed counts the failed outcomes.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
