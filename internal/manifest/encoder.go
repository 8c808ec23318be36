package manifest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mrclmr/vocalprep/internal/listfile"
)

var ErrUnknownLabel = errors.New("unknown label")

// LabelEncoder maps speaker names onto the dense range [0, K)
// in sorted name order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func (e *LabelEncoder) Fit(names []string) {
	classes := slices.Clone(names)
	slices.Sort(classes)
	e.classes = slices.Compact(classes)
	e.index = make(map[string]int, len(e.classes))
	for i, c := range e.classes {
		e.index[c] = i
	}
}

func (e *LabelEncoder) Transform(name string) (int, error) {
	label, ok := e.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
	}
	return label, nil
}

// Classes returns the distinct names; the index of a name is its label.
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

func (e *LabelEncoder) Mappings() []listfile.Mapping {
	mappings := make([]listfile.Mapping, len(e.classes))
	for i, c := range e.classes {
		mappings[i] = listfile.Mapping{Name: c, Label: i}
	}
	return mappings
}
