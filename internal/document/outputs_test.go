package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStreamJoinsFragments(t *testing.T) {
	outs := ExtractOutputs([]RawOutput{
		{Type: "stream", Text: []string{"line 1\n", "line 2\n"}},
	})
	require.Len(t, outs, 1)
	assert.Equal(t, "stream", outs[0].Kind)
	assert.Equal(t, "line 1\nline 2\n", outs[0].Text)
}

func TestExtractRichPayloadDerivesPlainText(t *testing.T) {
	data := map[string]any{
		"text/plain": []any{"<Figure ", "640x480>"},
		"image/png":  "iVBORw0...",
	}
	outs := ExtractOutputs([]RawOutput{{Type: "display_data", Data: data}})
	require.Len(t, outs, 1)
	assert.Equal(t, "<Figure 640x480>", outs[0].Text)
	assert.Equal(t, data, outs[0].Data)
}

func TestExtractError(t *testing.T) {
	outs := ExtractOutputs([]RawOutput{{
		Type:      "error",
		Ename:     "NameError",
		Evalue:    "name 'x' is not defined",
		Traceback: []string{"Traceback:", "  cell line 1"},
	}})
	require.Len(t, outs, 1)
	assert.Equal(t, "NameError: name 'x' is not defined\nTraceback:\n  cell line 1", outs[0].Text)
}

func TestExtractPlainTextString(t *testing.T) {
	outs := ExtractOutputs([]RawOutput{{
		Type: "execute_result",
		Data: map[string]any{"text/plain": "42"},
	}})
	require.Len(t, outs, 1)
	assert.Equal(t, "42", outs[0].Text)
}
