// ABOUTME: Tests for keyword selection: scoring, normalization, tie-breaks, pack loading.
// ABOUTME: Covers the determinism guarantees the dispatcher relies on.

package selector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
)

func testPack() *Pack {
	return &Pack{
		Default:  "analytical",
		Priority: []string{"analytical", "creative", "technical", "crm"},
		Triggers: map[string][]string{
			"analytical": {"analyze", "compare", "data"},
			"creative":   {"creative", "poem", "story"},
			"technical":  {"code", "debug"},
			"crm":        {"customer", "pipeline"},
		},
	}
}

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	sel, err := New(testPack())
	require.NoError(t, err)
	return sel
}

func TestSelector_EmptyInput(t *testing.T) {
	sel := newTestSelector(t)

	res := sel.Select("")
	assert.Equal(t, agent.Type("analytical"), res.AgentType)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Empty(t, res.Scores)
}

func TestSelector_NoMatch_DefaultType(t *testing.T) {
	sel := newTestSelector(t)

	res := sel.Select("hello there, how are you today?")
	assert.Equal(t, agent.Type("analytical"), res.AgentType)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestSelector_CreativePoem(t *testing.T) {
	sel, err := New(&Pack{
		Default:  "creative",
		Priority: []string{"creative", "technical"},
		Triggers: map[string][]string{
			"creative":  {"creative", "poem", "story"},
			"technical": {"code", "debug"},
		},
	})
	require.NoError(t, err)

	res := sel.Select("please write a creative poem")
	assert.Equal(t, agent.Type("creative"), res.AgentType)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestSelector_WholeWordBonus(t *testing.T) {
	sel := newTestSelector(t)

	// "code" inside "encoded" matches only as a substring
	sub := sel.Select("the message was encoded")
	require.Contains(t, sub.Scores, agent.Type("technical"))
	assert.Equal(t, 1.0, sub.Scores["technical"])

	// "code" as a standalone word earns the bonus
	word := sel.Select("review this code")
	assert.Equal(t, 1.5, word.Scores["technical"])
}

func TestSelector_CaseInsensitive(t *testing.T) {
	sel := newTestSelector(t)

	res := sel.Select("DEBUG the CODE")
	assert.Equal(t, agent.Type("technical"), res.AgentType)
	assert.Equal(t, 3.0, res.Scores["technical"])
}

func TestSelector_ConfidenceNormalization(t *testing.T) {
	sel := newTestSelector(t)

	// technical: code(1.5) + debug(1.5) = 3.0; creative: poem(1.5)
	res := sel.Select("debug the code in this poem")
	assert.Equal(t, agent.Type("technical"), res.AgentType)
	assert.InDelta(t, 3.0/4.5, res.Confidence, 1e-9)
}

func TestSelector_TieBreak_PriorityOrder(t *testing.T) {
	sel := newTestSelector(t)

	// One whole-word hit each: creative and technical tie at 1.5
	res := sel.Select("a poem about code")
	assert.Equal(t, 1.5, res.Scores["creative"])
	assert.Equal(t, 1.5, res.Scores["technical"])
	assert.Equal(t, agent.Type("creative"), res.AgentType,
		"tie must resolve to the earlier type in priority order")
}

func TestSelector_Deterministic(t *testing.T) {
	sel := newTestSelector(t)

	input := "compare customer data against the pipeline"
	first := sel.Select(input)
	for i := 0; i < 50; i++ {
		res := sel.Select(input)
		assert.Equal(t, first.AgentType, res.AgentType)
		assert.Equal(t, first.Confidence, res.Confidence)
		assert.Equal(t, first.Scores, res.Scores)
	}
}

func TestSelector_TypesIncludesUnprioritized(t *testing.T) {
	pack := testPack()
	pack.Priority = []string{"creative"}
	sel, err := New(pack)
	require.NoError(t, err)

	types := sel.Types()
	require.Len(t, types, 4)
	assert.Equal(t, agent.Type("creative"), types[0])
	// Remaining types follow in lexical order
	assert.Equal(t, []agent.Type{"analytical", "crm", "technical"}, types[1:])
}

func TestLoadPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.toml")
	content := `
default = "analytical"
priority = ["analytical", "creative"]

[triggers]
analytical = ["analyze", "data"]
creative = ["poem"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	pack, err := LoadPack(path)
	require.NoError(t, err)
	assert.Equal(t, "analytical", pack.Default)
	assert.Equal(t, []string{"analyze", "data"}, pack.Triggers["analytical"])

	sel, err := New(pack)
	require.NoError(t, err)
	res := sel.Select("analyze this data")
	assert.Equal(t, agent.Type("analytical"), res.AgentType)
}

func TestLoadPack_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"missing default", "[triggers]\nanalytical = [\"data\"]\n"},
		{"no triggers", "default = \"analytical\"\n"},
		{"empty trigger list", "default = \"a\"\n[triggers]\na = []\n"},
		{"malformed toml", "default = [broken\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := LoadPack(path)
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPack(filepath.Join(dir, "nope.toml"))
		assert.Error(t, err)
	})
}
