package llmtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObjectPlain(t *testing.T) {
	t.Parallel()

	var out map[string]int
	require.NoError(t, ExtractObject(`{"a": 1, "b": 2}`, &out))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, out)
}

func TestExtractObjectFencedWithProse(t *testing.T) {
	t.Parallel()

	content := "Sure! Here is the grouping you asked for:\n```json\n{\"x\": [1, 2]}\n```\nLet me know if you need anything else."

	var out map[string][]int
	require.NoError(t, ExtractObject(content, &out))
	assert.Equal(t, []int{1, 2}, out["x"])
}

func TestExtractObjectControlCharacters(t *testing.T) {
	t.Parallel()

	var out map[string]string
	require.NoError(t, ExtractObject("{\"k\": \"va\x02lue\"}", &out))
	assert.Equal(t, "value", out["k"])
}

func TestExtractObjectNoObject(t *testing.T) {
	t.Parallel()

	var out map[string]any
	err := ExtractObject("I could not produce a grouping.", &out)
	assert.Error(t, err)
}

func TestTrimToObjectNestedBraces(t *testing.T) {
	t.Parallel()

	content := `prefix {"outer": {"inner": 1}} suffix`
	assert.Equal(t, `{"outer": {"inner": 1}}`, TrimToObject(content))
}
