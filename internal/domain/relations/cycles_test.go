package relations_test

import (
	"fmt"
	"testing"

	"github.com/openkraft/ecoscan/internal/domain/relations"
	"github.com/stretchr/testify/assert"
)

func TestDetectCycles_NoCycles(t *testing.T) {
	adj := map[string][]string{"a": {"b"}, "b": {"c"}}
	assert.Empty(t, relations.DetectCycles(adj))
	assert.Nil(t, relations.DetectCycles(nil))
}

func TestDetectCycles_TwoNode(t *testing.T) {
	adj := map[string][]string{"b": {"a"}, "a": {"b"}}
	assert.Equal(t, [][]string{{"a", "b"}}, relations.DetectCycles(adj))
}

func TestDetectCycles_RotatedToSmallest(t *testing.T) {
	adj := map[string][]string{"z": {"m"}, "m": {"q"}, "q": {"z"}}
	assert.Equal(t, [][]string{{"m", "q", "z"}}, relations.DetectCycles(adj))
}

func TestDetectCycles_DistinctCyclesSharingNode(t *testing.T) {
	adj := map[string][]string{
		"a": {"b", "c"},
		"b": {"a"},
		"c": {"a"},
	}
	assert.ElementsMatch(t, [][]string{{"a", "b"}, {"a", "c"}}, relations.DetectCycles(adj))
}

func TestDetectCycles_DeepChainDoesNotRecurse(t *testing.T) {
	adj := make(map[string][]string)
	const n = 100000
	for i := 0; i < n; i++ {
		adj[fmt.Sprintf("n%06d", i)] = []string{fmt.Sprintf("n%06d", (i+1)%n)}
	}
	cycles := relations.DetectCycles(adj)
	assert.Len(t, cycles, 1)
	assert.Len(t, cycles[0], n)
	assert.Equal(t, "n000000", cycles[0][0])
}
