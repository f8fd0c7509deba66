package quiz

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffle_IsPermutation(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	shuffle(items, r.IntN)

	sorted := slices.Clone(items)
	slices.Sort(sorted)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, sorted)
}

func TestShuffle_Uniform(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	counts := map[[3]int]int{}
	const rounds = 60000
	for range rounds {
		items := []int{0, 1, 2}
		shuffle(items, r.IntN)
		counts[[3]int(items)]++
	}
	require.Len(t, counts, 6, "every permutation occurs")
	for perm, n := range counts {
		assert.InDelta(t, rounds/6, n, rounds/60, "permutation %v", perm)
	}
}

func TestShuffle_LastIndexDrawnFirst(t *testing.T) {
	var bounds []int
	shuffle([]string{"a", "b", "c", "d"}, func(n int) int {
		bounds = append(bounds, n)
		return n - 1
	})
	assert.Equal(t, []int{4, 3, 2}, bounds)
}

func TestCheckAnswer(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		options  []string
		answer   string
		want     string
		wantKind apperr.Kind
	}{
		{name: "choice in options", typ: TypeMultipleChoice, options: []string{"a", "b"}, answer: "b", want: "b"},
		{name: "too few options", typ: TypeMultipleChoice, options: []string{"a"}, answer: "a", wantKind: apperr.KindValidation},
		{name: "answer not an option", typ: TypeMultipleChoice, options: []string{"a", "b"}, answer: "c", wantKind: apperr.KindValidation},
		{name: "true false normalized", typ: TypeTrueFalse, answer: " True ", want: "true"},
		{name: "true false rejects other", typ: TypeTrueFalse, answer: "yes", wantKind: apperr.KindValidation},
		{name: "short answer free", typ: TypeShortAnswer, answer: "Na", want: "Na"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkAnswer(tt.typ, tt.options, tt.answer)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
