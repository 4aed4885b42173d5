package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kinosync/internal/domain"
)

func TestAddTrimsAndPrepends(t *testing.T) {
	h, err := Add([]string{"alien"}, "  dune ")
	require.NoError(t, err)
	assert.Equal(t, []string{"dune", "alien"}, h)
}

func TestAddRejectsEmpty(t *testing.T) {
	_, err := Add([]string{"alien"}, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyKeyword)
}

func TestAddDedupLaw(t *testing.T) {
	for _, base := range [][]string{nil, {"a"}, {"a", "b", "c"}, {"b", "a", "c"}} {
		once, err := Add(base, "a")
		require.NoError(t, err)
		twice, err := Add(once, "a")
		require.NoError(t, err)

		assert.Equal(t, len(once), len(twice))
		assert.Equal(t, "a", twice[0])
		assert.Equal(t, once, twice)
	}
}

func TestAddMovesExistingToFront(t *testing.T) {
	h, err := Add([]string{"a", "b", "c"}, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, h)
}

func TestAddCapLaw(t *testing.T) {
	var h []string
	for i := 0; i < 25; i++ {
		var err error
		h, err = Add(h, fmt.Sprintf("kw%02d", i))
		require.NoError(t, err)
	}

	require.Len(t, h, domain.MaxSearchHistory)
	for i, k := range h {
		assert.Equal(t, fmt.Sprintf("kw%02d", 24-i), k)
	}
}

func TestAddDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b"}
	_, err := Add(in, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, in)
}

func TestRemoveExactTrimmedMatch(t *testing.T) {
	h := []string{"Dune", "dune", "alien"}
	assert.Equal(t, []string{"Dune", "alien"}, Remove(h, " dune "))
	assert.Equal(t, h, Remove(h, "missing"))
}

func TestSuggest(t *testing.T) {
	h := []string{"the matrix", "matrix reloaded", "dune", "Mad Max"}

	assert.Equal(t, []string{"the matrix", "matrix reloaded"}, Suggest(h, "matrix", 0)[:2])
	assert.Contains(t, Suggest(h, "MAD", 0), "Mad Max")
	assert.Empty(t, Suggest(h, "zzz", 0))
	assert.Equal(t, []string{"the matrix", "matrix reloaded"}, Suggest(h, "", 2))
	assert.Len(t, Suggest(h, "a", 1), 1)
}
