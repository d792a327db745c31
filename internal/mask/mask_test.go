package mask

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dicto/internal/config"
)

func maskingOff() config.Settings {
	s := config.Default()
	s.EnableDLPScan = false
	s.MaskEmail = false
	s.MaskPhone = false
	s.MaskNumbers = false
	s.CustomReplaceRules = nil
	return s
}

func TestApplyMasksEmail(t *testing.T) {
	s := maskingOff()
	s.MaskEmail = true

	out, err := Apply(s, "連絡先は taro@example.co.jp です")
	require.NoError(t, err)
	require.Equal(t, "連絡先は ＜メール＞ です", out)
}

func TestApplyMasksNumberSequences(t *testing.T) {
	s := maskingOff()
	s.MaskNumbers = true

	out, err := Apply(s, "口座番号は 1234567890 です")
	require.NoError(t, err)
	require.Equal(t, "口座番号は ＜数列＞ です", out)
	require.NotContains(t, out, "1234567890")
}

func TestApplyMasksPhone(t *testing.T) {
	s := maskingOff()
	s.MaskPhone = true

	out, err := Apply(s, "call 03-1234-5678 now")
	require.NoError(t, err)
	require.Contains(t, out, "＜電話番号＞")
	require.NotContains(t, out, "03-1234-5678")
}

func TestApplyDLPBlock(t *testing.T) {
	s := maskingOff()
	s.EnableDLPScan = true
	s.DLPAction = "block"

	out, err := Apply(s, "send to someone@example.com")
	require.ErrorIs(t, err, ErrBlocked)
	require.Empty(t, out)
}

func TestApplyDLPWarnPassesThrough(t *testing.T) {
	s := maskingOff()
	s.EnableDLPScan = true
	s.DLPAction = "warn"

	out, err := Apply(s, "send to someone@example.com")
	require.NoError(t, err)
	require.Equal(t, "send to someone@example.com", out)
}

func TestApplyCleanTextUnchanged(t *testing.T) {
	s := config.Default()
	s.CustomReplaceRules = nil

	out, err := Apply(s, "今日は晴れです")
	require.NoError(t, err)
	require.Equal(t, "今日は晴れです", out)
}

func TestApplyCustomRules(t *testing.T) {
	s := maskingOff()
	s.CustomReplaceRules = []config.ReplaceRule{
		{Pattern: "foo", Replace: "bar"},
		{Pattern: "BAZ", Replace: "qux", Flags: "i"},
	}

	out, err := Apply(s, "foo and baz")
	require.NoError(t, err)
	require.Equal(t, "bar and qux", out)
}

func TestApplyInvalidCustomRuleSkipped(t *testing.T) {
	s := maskingOff()
	s.CustomReplaceRules = []config.ReplaceRule{
		{Pattern: "([", Replace: "x"},
		{Pattern: "keep", Replace: "kept"},
	}

	out, err := Apply(s, "keep this")
	require.NoError(t, err)
	require.Equal(t, "kept this", out)
}

func TestApplyRulesRunAfterMasking(t *testing.T) {
	s := maskingOff()
	s.MaskEmail = true
	s.CustomReplaceRules = []config.ReplaceRule{
		{Pattern: "＜メール＞", Replace: "[email]"},
	}

	out, err := Apply(s, "mail me at a@b.example")
	require.NoError(t, err)
	require.Equal(t, "mail me at [email]", out)
}
