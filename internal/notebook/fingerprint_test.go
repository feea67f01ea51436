package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterminism(t *testing.T) {
	a := Fingerprint(KindCode, "print(1)")
	b := Fingerprint(KindCode, "print(1)")
	assert.Equal(t, a, b)
}

// The fingerprint is verified across process boundaries, so the exact output
// is pinned. If this test breaks, the wire contract broke.
func TestFingerprintPinnedValues(t *testing.T) {
	tests := []struct {
		kind    CellKind
		content string
		want    string
	}{
		{KindCode, "print(1)", "2f003ba9"},
		{KindCode, "print(2)", "2f003bca"},
		{KindCode, "", "a8c2768"},
		{KindMarkdown, "# Intro", "af2c1e0f"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fingerprint(tt.kind, tt.content),
			"fingerprint(%s, %q)", tt.kind, tt.content)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint(KindCode, "x = 1")
	assert.NotEqual(t, base, Fingerprint(KindCode, "x = 2"))
	assert.NotEqual(t, base, Fingerprint(KindMarkdown, "x = 1"))
	// The kind/content boundary must matter: "codex" + "" vs "code" + "x".
	assert.NotEqual(t, Fingerprint(CellKind("codex"), ""), Fingerprint(KindCode, "x"))
}
