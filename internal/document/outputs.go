package document

import (
	"fmt"
	"strings"

	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

// RawOutput mirrors one nbformat output entry as captured by execution or
// loaded from disk. Exactly which fields are populated depends on Type.
type RawOutput struct {
	Type      string         `json:"output_type"`
	Text      []string       `json:"text,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Ename     string         `json:"ename,omitempty"`
	Evalue    string         `json:"evalue,omitempty"`
	Traceback []string       `json:"traceback,omitempty"`
}

// ExtractOutputs converts raw nbformat outputs into the shape returned to
// the model: stream text joined, rich payloads carried with a derived
// text/plain rendering, errors flattened to "ename: evalue" plus traceback.
func ExtractOutputs(raws []RawOutput) []notebook.Output {
	outs := make([]notebook.Output, 0, len(raws))
	for _, r := range raws {
		switch r.Type {
		case "stream":
			outs = append(outs, notebook.Output{
				Kind: "stream",
				Text: strings.Join(r.Text, ""),
			})
		case "execute_result", "display_data":
			o := notebook.Output{Kind: r.Type, Data: r.Data}
			if plain, ok := r.Data["text/plain"]; ok {
				o.Text = plainText(plain)
			}
			outs = append(outs, o)
		case "error":
			lines := make([]string, 0, len(r.Traceback)+1)
			lines = append(lines, fmt.Sprintf("%s: %s", r.Ename, r.Evalue))
			lines = append(lines, r.Traceback...)
			outs = append(outs, notebook.Output{
				Kind: "error",
				Text: strings.Join(lines, "\n"),
			})
		default:
			outs = append(outs, notebook.Output{Kind: r.Type})
		}
	}
	return outs
}

// plainText renders a text/plain mime payload, which nbformat stores either
// as a string or as a list of line fragments.
func plainText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	}
	return ""
}
