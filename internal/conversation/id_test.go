package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalIDSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"+1111", "+2222"},
		{"919937320320", "918329446654"},
		{"alice", "bob"},
		{"+49123", "+49123"},
	}

	for _, pair := range pairs {
		assert.Equal(t, CanonicalID(pair[0], pair[1]), CanonicalID(pair[1], pair[0]))
	}
}

func TestCanonicalIDSortsLexicographically(t *testing.T) {
	require.Equal(t, "+1111_+2222", CanonicalID("+2222", "+1111"))
	require.Equal(t, "918329446654_919937320320", CanonicalID("919937320320", "918329446654"))
}

func TestCanonicalIDDistinctPairsDiffer(t *testing.T) {
	ids := map[string]bool{}
	participants := []string{"+1", "+2", "+3", "+4"}
	for i, a := range participants {
		for _, b := range participants[i+1:] {
			ids[CanonicalID(a, b)] = true
		}
	}
	require.Len(t, ids, 6)
}

func TestParticipants(t *testing.T) {
	a, b, ok := Participants("+1111_+2222")
	require.True(t, ok)
	assert.Equal(t, "+1111", a)
	assert.Equal(t, "+2222", b)

	_, _, ok = Participants("loneid")
	assert.False(t, ok)
}
