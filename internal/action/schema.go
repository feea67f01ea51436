package action

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// fieldSpec fixes the accepted field set of one action kind. The "kind"
// discriminant itself is implicit.
type fieldSpec struct {
	required []string
	optional []string
}

// schema is the closed validation table. Field names here are wire names.
var schema = map[Kind]fieldSpec{
	KindGetToc:     {},
	KindGetSection: {required: []string{"query"}},
	KindGetCells:   {required: []string{"query"}, optional: []string{"count"}},
	KindGetOutput:  {required: []string{"query"}},

	KindListFiles:    {optional: []string{"path"}},
	KindGetTocAt:     {required: []string{"path"}},
	KindGetSectionAt: {required: []string{"path", "query"}},
	KindGetCellsAt:   {required: []string{"path", "query"}, optional: []string{"count"}},
	KindGetOutputAt:  {required: []string{"path", "query"}},

	KindInsertCell:  {required: []string{"position", "cellKind", "content"}},
	KindUpdateCell:  {required: []string{"query", "content", "fingerprint"}},
	KindDeleteCell:  {required: []string{"query", "fingerprint"}},
	KindExecuteCell: {required: []string{"query"}},

	KindListHelp: {},
	KindHelp:     {required: []string{"action"}},
}

// Spec exposes the field table for one kind, used by the help actions.
func Spec(k Kind) (required, optional []string, ok bool) {
	s, ok := schema[k]
	return s.required, s.optional, ok
}

const (
	correctionHeader = "Your previous response contained invalid actions:"
	correctionFooter = "Please resend the complete response as a JSON envelope with the corrected actions."
)

// Result is the outcome of validating one batch of raw actions.
type Result struct {
	Valid  bool
	Errors []string
	// Correction is the full message to replay to the model; empty when the
	// batch is valid.
	Correction string
}

// Validate checks every raw action against the schema table, collecting all
// errors across the batch rather than stopping at the first. The returned
// correction message is replayed to the model verbatim.
func Validate(raws []json.RawMessage) Result {
	var errs []string
	for i, raw := range raws {
		errs = append(errs, validateOne(i, raw)...)
	}
	res := Result{Valid: len(errs) == 0, Errors: errs}
	if !res.Valid {
		res.Correction = Correction(errs)
	}
	return res
}

// Correction renders a list of batch errors as the message replayed to the
// model. The agent also uses it for errors found after schema validation,
// such as an unparseable query value.
func Correction(errs []string) string {
	var b strings.Builder
	b.WriteString(correctionHeader)
	for _, e := range errs {
		b.WriteString("\n- ")
		b.WriteString(e)
	}
	b.WriteString("\n")
	b.WriteString(correctionFooter)
	return b.String()
}

func validateOne(i int, raw json.RawMessage) []string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return []string{fmt.Sprintf("action %d: not a JSON object", i+1)}
	}

	kindRaw, present := fields["kind"]
	if !present {
		return []string{fmt.Sprintf("action %d: missing \"kind\" field", i+1)}
	}
	var kindStr string
	if err := json.Unmarshal(kindRaw, &kindStr); err != nil {
		return []string{fmt.Sprintf("action %d: \"kind\" must be a string", i+1)}
	}

	spec, known := schema[Kind(kindStr)]
	if !known {
		return []string{fmt.Sprintf("action %d: unknown kind %q; valid kinds are: %s",
			i+1, kindStr, kindList())}
	}

	var errs []string
	for _, req := range spec.required {
		val, ok := fields[req]
		if !ok || string(val) == "null" {
			errs = append(errs, fmt.Sprintf("action %d (%s): missing required field %q",
				i+1, kindStr, req))
		}
	}

	known2 := append(append([]string{"kind"}, spec.required...), spec.optional...)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if contains(known2, name) {
			continue
		}
		msg := fmt.Sprintf("action %d (%s): unexpected field %q", i+1, kindStr, name)
		if suggestion, ok := closestField(name, known2); ok {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		errs = append(errs, msg)
	}
	return errs
}

// closestField fuzzy-matches an unexpected field name against the known
// names: case-insensitive equality, or substring containment in either
// direction. Anagram-level typos like "qeury" are caught by the containment
// check on shared prefixes failing, so fall back to a same-letters test.
func closestField(name string, known []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, k := range known {
		kl := strings.ToLower(k)
		if lower == kl || strings.Contains(kl, lower) || strings.Contains(lower, kl) {
			return k, true
		}
	}
	for _, k := range known {
		if sameLetters(lower, strings.ToLower(k)) {
			return k, true
		}
	}
	return "", false
}

// sameLetters reports whether two strings are permutations of each other,
// catching transposition typos.
func sameLetters(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var counts [256]int
	for i := 0; i < len(a); i++ {
		counts[a[i]]++
		counts[b[i]]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func kindList() string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func errBadPosition(got string) error {
	return fmt.Errorf("insert position must be a cell query or the string \"end\", got %q", got)
}

func errBadCellKind(got string) error {
	return fmt.Errorf("cellKind must be \"code\" or \"markdown\", got %q", got)
}
