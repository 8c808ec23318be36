// Package split partitions a manifest into training and evaluation lists.
package split

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"slices"

	"github.com/mrclmr/vocalprep/internal/listfile"
)

const (
	TrainFile = "train_list.txt"
	EvalFile  = "val_list.txt"
)

var (
	ErrInvalidFraction     = errors.New("eval fraction must be within [0, 1]")
	ErrInvalidHoldout      = errors.New("invalid holdout label count")
	ErrConflictingPolicies = errors.New("set only one: eval fraction, holdout count or holdout labels")
)

// Result is a disjoint partition of the input entries.
type Result struct {
	Train []listfile.Entry
	Eval  []listfile.Entry
	// EvalLabels is set by the holdout policies.
	EvalLabels []string
}

// Policy decides which entries go to the evaluation set.
type Policy interface {
	Split(entries []listfile.Entry, rng *rand.Rand) (*Result, error)
	String() string
}

// Fraction shuffles all entries and takes the first floor(f*N) as eval.
type Fraction float64

func (f Fraction) Split(entries []listfile.Entry, rng *rand.Rand) (*Result, error) {
	if !(f >= 0 && f <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFraction, float64(f))
	}
	shuffled := slices.Clone(entries)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	evalCount := int(float64(len(shuffled)) * float64(f))
	return &Result{
		Eval:  shuffled[:evalCount],
		Train: shuffled[evalCount:],
	}, nil
}

func (f Fraction) String() string {
	return fmt.Sprintf("fraction %v", float64(f))
}

// HoldoutCount moves all entries of n randomly chosen labels to eval.
type HoldoutCount int

func (n HoldoutCount) Split(entries []listfile.Entry, rng *rand.Rand) (*Result, error) {
	labels := distinctLabels(entries)
	if n < 0 || int(n) > len(labels) {
		return nil, fmt.Errorf("%w: %d of %d labels", ErrInvalidHoldout, int(n), len(labels))
	}
	perm := rng.Perm(len(labels))[:n]
	chosen := make([]string, len(perm))
	for i, p := range perm {
		chosen[i] = labels[p]
	}
	slices.Sort(chosen)
	return partition(entries, chosen), nil
}

func (n HoldoutCount) String() string {
	return fmt.Sprintf("holdout %d labels", int(n))
}

// HoldoutLabels moves all entries of the listed labels to eval.
// Labels that do not occur in the entries are ignored.
type HoldoutLabels []string

func (l HoldoutLabels) Split(entries []listfile.Entry, _ *rand.Rand) (*Result, error) {
	present := distinctLabels(entries)
	var chosen []string
	for _, label := range l {
		if !slices.Contains(present, label) {
			slog.Warn("holdout label not in manifest", "label", label)
			continue
		}
		chosen = append(chosen, label)
	}
	slices.Sort(chosen)
	return partition(entries, slices.Compact(chosen)), nil
}

func (l HoldoutLabels) String() string {
	return fmt.Sprintf("holdout labels %v", []string(l))
}

// NewPolicy selects the policy. A holdout count or label list takes
// precedence over the fraction; setting both holdouts is an error.
func NewPolicy(evalFraction float64, holdoutCount int, holdoutLabels []string) (Policy, error) {
	switch {
	case holdoutCount != 0 && len(holdoutLabels) > 0:
		return nil, ErrConflictingPolicies
	case holdoutCount != 0:
		return HoldoutCount(holdoutCount), nil
	case len(holdoutLabels) > 0:
		return HoldoutLabels(holdoutLabels), nil
	default:
		return Fraction(evalFraction), nil
	}
}

// NewRand returns a seeded source. Seed 0 draws a random seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
		slog.Debug("random split seed", "seed", seed)
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Dir reads the manifest in dir, splits it with p and overwrites
// TrainFile and EvalFile in dir.
func Dir(dir, manifestFile string, p Policy, rng *rand.Rand) (*Result, error) {
	entries, err := listfile.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	res, err := p.Split(entries, rng)
	if err != nil {
		return nil, err
	}
	if err := listfile.WriteFile(filepath.Join(dir, TrainFile), res.Train); err != nil {
		return nil, err
	}
	if err := listfile.WriteFile(filepath.Join(dir, EvalFile), res.Eval); err != nil {
		return nil, err
	}
	slog.Info("split written",
		"policy", p.String(),
		"train", len(res.Train),
		"eval", len(res.Eval),
	)
	if len(res.EvalLabels) > 0 {
		slog.Info("eval labels", "labels", res.EvalLabels)
	}
	return res, nil
}

func partition(entries []listfile.Entry, evalLabels []string) *Result {
	res := &Result{EvalLabels: evalLabels}
	for _, e := range entries {
		if slices.Contains(evalLabels, e.Label) {
			res.Eval = append(res.Eval, e)
		} else {
			res.Train = append(res.Train, e)
		}
	}
	return res
}

func distinctLabels(entries []listfile.Entry) []string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	slices.Sort(labels)
	return slices.Compact(labels)
}
