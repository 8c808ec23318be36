package split

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrclmr/vocalprep/internal/listfile"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	exitVal := m.Run()
	os.Exit(exitVal)
}

func exampleEntries() []listfile.Entry {
	return []listfile.Entry{
		{Path: "a.wav", Label: "0"},
		{Path: "b.wav", Label: "1"},
		{Path: "c.wav", Label: "0"},
		{Path: "d.wav", Label: "1"},
	}
}

// manifest returns n entries spread over labels distinct labels.
func manifest(n, labels int) []listfile.Entry {
	entries := make([]listfile.Entry, n)
	for i := range n {
		entries[i] = listfile.Entry{
			Path:  fmt.Sprintf("DataVocalSet/s%d/s%d_%d.wav", i%labels, i%labels, i),
			Label: fmt.Sprint(i % labels),
		}
	}
	return entries
}

// requirePartition checks that train and eval together are exactly entries.
func requirePartition(t *testing.T, entries []listfile.Entry, res *Result) {
	t.Helper()
	require.Len(t, slices.Concat(res.Train, res.Eval), len(entries))
	assert.ElementsMatch(t, entries, slices.Concat(res.Train, res.Eval))
}

func TestHoldoutLabels_Example(t *testing.T) {
	res, err := HoldoutLabels{"1"}.Split(exampleEntries(), NewRand(1))
	require.NoError(t, err)

	assert.Equal(t, []listfile.Entry{{Path: "b.wav", Label: "1"}, {Path: "d.wav", Label: "1"}}, res.Eval)
	assert.Equal(t, []listfile.Entry{{Path: "a.wav", Label: "0"}, {Path: "c.wav", Label: "0"}}, res.Train)
	assert.Equal(t, []string{"1"}, res.EvalLabels)
}

func TestHoldoutLabels_FiltersAbsentLabels(t *testing.T) {
	entries := manifest(30, 5)

	res, err := HoldoutLabels{"3", "42", "3", "0"}.Split(entries, NewRand(1))
	require.NoError(t, err)

	requirePartition(t, entries, res)
	assert.Equal(t, []string{"0", "3"}, res.EvalLabels)
	for _, e := range res.Eval {
		assert.Contains(t, []string{"0", "3"}, e.Label)
	}
	for _, e := range res.Train {
		assert.NotContains(t, []string{"0", "3"}, e.Label)
	}
}

func TestHoldoutLabels_NonePresent(t *testing.T) {
	entries := exampleEntries()
	res, err := HoldoutLabels{"7"}.Split(entries, NewRand(1))
	require.NoError(t, err)

	assert.Empty(t, res.Eval)
	assert.Equal(t, entries, res.Train)
}

func TestHoldoutCount(t *testing.T) {
	entries := manifest(100, 10)
	for k := range 11 {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			res, err := HoldoutCount(k).Split(entries, NewRand(uint64(k+1)))
			require.NoError(t, err)

			requirePartition(t, entries, res)
			assert.Len(t, res.EvalLabels, k)

			evalLabels := make(map[string]bool)
			for _, e := range res.Eval {
				evalLabels[e.Label] = true
			}
			assert.Len(t, evalLabels, k)
			for _, e := range res.Train {
				assert.False(t, evalLabels[e.Label], "train label %s also in eval", e.Label)
			}
		})
	}
}

func TestHoldoutCount_Invalid(t *testing.T) {
	entries := manifest(10, 3)

	_, err := HoldoutCount(4).Split(entries, NewRand(1))
	require.ErrorIs(t, err, ErrInvalidHoldout)

	_, err = HoldoutCount(-1).Split(entries, NewRand(1))
	require.ErrorIs(t, err, ErrInvalidHoldout)
}

func TestHoldoutCount_Seeded(t *testing.T) {
	entries := manifest(50, 10)

	first, err := HoldoutCount(3).Split(entries, NewRand(42))
	require.NoError(t, err)
	second, err := HoldoutCount(3).Split(entries, NewRand(42))
	require.NoError(t, err)

	assert.Equal(t, first.EvalLabels, second.EvalLabels)
}

func TestFraction(t *testing.T) {
	for _, n := range []int{0, 1, 4, 7, 100, 333} {
		for _, f := range []float64{0, 0.1, 0.2, 0.29, 0.5, 0.999, 1} {
			t.Run(fmt.Sprintf("n=%d f=%v", n, f), func(t *testing.T) {
				entries := manifest(n, 3)
				res, err := Fraction(f).Split(entries, NewRand(7))
				require.NoError(t, err)

				requirePartition(t, entries, res)
				assert.Len(t, res.Eval, int(math.Floor(float64(n)*f)))
			})
		}
	}
}

func TestFraction_DoesNotModifyInput(t *testing.T) {
	entries := manifest(20, 4)
	orig := slices.Clone(entries)

	_, err := Fraction(0.5).Split(entries, NewRand(3))
	require.NoError(t, err)
	assert.Equal(t, orig, entries)
}

func TestFraction_Invalid(t *testing.T) {
	for _, f := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := Fraction(f).Split(manifest(5, 2), NewRand(1))
		assert.ErrorIs(t, err, ErrInvalidFraction, "fraction %v", f)
	}
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		count    int
		labels   []string
		want     Policy
		wantErr  error
	}{
		{name: "fraction", fraction: 0.2, want: Fraction(0.2)},
		{name: "count", fraction: 0.2, count: 2, want: HoldoutCount(2)},
		{name: "labels", fraction: 0.2, labels: []string{"1"}, want: HoldoutLabels{"1"}},
		{name: "both holdouts", count: 2, labels: []string{"1"}, wantErr: ErrConflictingPolicies},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPolicy(tt.fraction, tt.count, tt.labels)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, listfile.WriteFile(filepath.Join(dir, "manifest.txt"), exampleEntries()))
	// Stale lists must be replaced.
	require.NoError(t, os.WriteFile(filepath.Join(dir, TrainFile), []byte("old.wav|9\nolder.wav|9\n"), 0o644))

	_, err := Dir(dir, "manifest.txt", HoldoutLabels{"1"}, NewRand(1))
	require.NoError(t, err)

	train, err := os.ReadFile(filepath.Join(dir, TrainFile))
	require.NoError(t, err)
	assert.Equal(t, "a.wav|0\nc.wav|0\n", string(train))

	eval, err := os.ReadFile(filepath.Join(dir, EvalFile))
	require.NoError(t, err)
	assert.Equal(t, "b.wav|1\nd.wav|1\n", string(eval))
}

func TestDir_MissingManifest(t *testing.T) {
	_, err := Dir(t.TempDir(), "manifest.txt", Fraction(0.2), NewRand(1))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
