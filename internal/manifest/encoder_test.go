package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrclmr/vocalprep/internal/listfile"
)

func TestLabelEncoder(t *testing.T) {
	enc := &LabelEncoder{}
	enc.Fit([]string{"m3", "f1", "m3", "f2", "f1"})

	assert.Equal(t, []string{"f1", "f2", "m3"}, enc.Classes())
	assert.Equal(t, []listfile.Mapping{{Name: "f1", Label: 0}, {Name: "f2", Label: 1}, {Name: "m3", Label: 2}}, enc.Mappings())

	for i, c := range enc.Classes() {
		label, err := enc.Transform(c)
		require.NoError(t, err)
		assert.Equal(t, i, label)
	}

	_, err := enc.Transform("x9")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestLabelEncoder_Bijection(t *testing.T) {
	names := []string{"tenor", "alto", "bass", "soprano", "alto", "bass", "mezzo"}
	enc := &LabelEncoder{}
	enc.Fit(names)

	seen := make(map[int]string)
	for _, n := range names {
		label, err := enc.Transform(n)
		require.NoError(t, err)
		if prev, ok := seen[label]; ok {
			assert.Equal(t, prev, n, "label %d shared by two names", label)
		}
		seen[label] = n
	}
	require.Len(t, seen, 5)
	for i := range 5 {
		assert.Contains(t, seen, i)
	}
}

func TestLabelEncoder_Empty(t *testing.T) {
	enc := &LabelEncoder{}
	enc.Fit(nil)
	assert.Empty(t, enc.Classes())
	assert.Empty(t, enc.Mappings())
}
