package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyNumbersDistinctMatches(t *testing.T) {
	f := MustCompile([][2]string{
		{`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`, "IP_#"},
	})
	got := f.Apply("ping 10.0.0.1 then 10.0.0.2 then 10.0.0.1 again")
	assert.Equal(t, "ping IP_1 then IP_2 then IP_1 again", got)
}

func TestApplyCountersResetPerCall(t *testing.T) {
	f := MustCompile([][2]string{
		{`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`, "IP_#"},
	})
	first := f.Apply("host 192.168.1.7")
	second := f.Apply("host 172.16.0.9")
	// A fresh call starts numbering at 1 regardless of earlier calls.
	assert.Equal(t, "host IP_1", first)
	assert.Equal(t, "host IP_1", second)
}

func TestApplyPipelineOrder(t *testing.T) {
	// Rule 2 sees rule 1's output, so it can match the substituted label.
	f := MustCompile([][2]string{
		{`secret`, "HIDDEN"},
		{`HIDDEN`, "GONE_#"},
	})
	assert.Equal(t, "a GONE_1 b GONE_1", f.Apply("a secret b secret"))
}

func TestApplyLiteralLabel(t *testing.T) {
	f := MustCompile([][2]string{{`\bpassword\b`, "[redacted]"}})
	assert.Equal(t, "[redacted] = [redacted]", f.Apply("password = password"))
}

func TestApplyRuleCountersAreIndependent(t *testing.T) {
	f := MustCompile([][2]string{
		{`alpha\d`, "A_#"},
		{`beta\d`, "B_#"},
	})
	got := f.Apply("alpha1 beta9 alpha2 beta9")
	assert.Equal(t, "A_1 B_1 A_2 B_1", got)
}

func TestCompileRejectsBadPattern(t *testing.T) {
	_, err := Compile([][2]string{{"(", "X"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 1")
}

func TestDefaultRulesCompile(t *testing.T) {
	f := MustCompile(DefaultRules())
	assert.Equal(t, 3, f.Len())
	got := f.Apply(`api_key = "sk-12345" sent to 10.1.2.3`)
	assert.NotContains(t, got, "sk-12345")
	assert.NotContains(t, got, "10.1.2.3")
}
