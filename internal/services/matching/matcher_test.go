package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Normalize(t *testing.T) {
	m := NewMatcher(0.8)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "uppercases and trims", input: "  alice cooper ", want: "ALICE COOPER"},
		{name: "collapses whitespace runs", input: "ALICE   \t COOPER", want: "ALICE COOPER"},
		{name: "splits concatenated known first name", input: "WILLIAMBURT", want: "WILLIAM BURT"},
		{name: "longest known prefix wins", input: "WILLIAMSON", want: "WILLIAM SON"},
		{name: "no split when remainder too short", input: "WILLIAMS", want: "WILLIAMS"},
		{name: "no split for unknown prefix", input: "XQBURT", want: "XQBURT"},
		{name: "nickname maps to canonical form", input: "Bob Smith", want: "ROBERT SMITH"},
		{name: "nickname only replaces whole tokens", input: "BOBBINS SMITH", want: "BOBBINS SMITH"},
		{name: "split then nickname", input: "JIMHENDRIX", want: "JAMES HENDRIX"},
		{name: "empty stays empty", input: "", want: ""},
		{name: "whitespace only stays empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Normalize(tt.input))
		})
	}
}

func TestMatcher_Score(t *testing.T) {
	m := NewMatcher(0.8)

	t.Run("equal non-empty ids short-circuit to 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, m.Score("Alice Cooper", "E100", "Zebra Quux", "E100"))
	})

	t.Run("empty ids never short-circuit", func(t *testing.T) {
		assert.Less(t, m.Score("Alice Cooper", "", "Zebra Quux", ""), 0.5)
	})

	t.Run("identical names score 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, m.Score("Alice Cooper", "", "alice cooper", ""))
	})

	t.Run("nickname variants score 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, m.Score("Bob Smith", "", "Robert Smith", ""))
	})

	t.Run("empty names score 0 without ids", func(t *testing.T) {
		assert.Equal(t, 0.0, m.Score("", "", "", ""))
		assert.Equal(t, 0.0, m.Score("Alice", "", "", ""))
	})

	t.Run("unequal ids add a bonus but stay clamped", func(t *testing.T) {
		base := m.Score("Alice Coper", "", "Alice Cooper", "")
		withBonus := m.Score("Alice Coper", "E101", "Alice Cooper", "E102")
		assert.Greater(t, withBonus, base)
		assert.LessOrEqual(t, withBonus, 1.0)
	})

	t.Run("never panics on odd input", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.Score("\x00\xff", "", "   ", "id")
			m.Score("a", "x", "b", "")
		})
	})
}

func TestMatcher_BestMatch(t *testing.T) {
	m := NewMatcher(0.8)
	pool := []Candidate{
		{Key: "k1", Name: "Charlie Parker", ExternalID: ""},
		{Key: "k2", Name: "Alice Cooper", ExternalID: ""},
		{Key: "k3", Name: "Alice Cooper", ExternalID: ""},
	}

	t.Run("picks the highest scorer above threshold", func(t *testing.T) {
		got := m.BestMatch("alice cooper", "", pool)
		require.NotNil(t, got)
		assert.Equal(t, "k2", got.Key)
		assert.Equal(t, 1.0, got.Score)
	})

	t.Run("ties keep the first-encountered entry", func(t *testing.T) {
		got := m.BestMatch("Alice Cooper", "", pool)
		require.NotNil(t, got)
		assert.Equal(t, "k2", got.Key)
	})

	t.Run("nil when nothing clears the threshold", func(t *testing.T) {
		assert.Nil(t, m.BestMatch("Zebra Quux", "", pool))
	})

	t.Run("nil for empty name and no id", func(t *testing.T) {
		assert.Nil(t, m.BestMatch("", "", pool))
	})

	t.Run("exact id wins regardless of name", func(t *testing.T) {
		withIDs := []Candidate{
			{Key: "a", Name: "Someone Else", ExternalID: "E7"},
			{Key: "b", Name: "Alice Cooper", ExternalID: "E8"},
		}
		got := m.BestMatch("Totally Different", "E7", withIDs)
		require.NotNil(t, got)
		assert.Equal(t, "a", got.Key)
		assert.Equal(t, "exact_id", got.Reason)
	})
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("ABC", "ABC"))
	assert.Equal(t, 0.0, similarityRatio("", ""))
	assert.Equal(t, 0.0, similarityRatio("ABC", ""))
	assert.Equal(t, 0.0, similarityRatio("ABC", "XYZ"))
	// 2 * 3 matching chars / (4 + 4)
	assert.InDelta(t, 0.75, similarityRatio("ABCD", "ABCX"), 1e-9)
}

func TestNameSplitter_CustomPrefixes(t *testing.T) {
	s := NewNameSplitter([]string{"ZELDA"})
	assert.Equal(t, "ZELDA FITZGERALD", s.Split("ZELDAFITZGERALD"))
	assert.Equal(t, "WILLIAMBURT", s.Split("WILLIAMBURT"))
}
