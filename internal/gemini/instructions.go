package gemini

import (
	"fmt"
	"strings"

	"dicto/internal/config"
)

// BuildInstructions assembles the system instruction from settings toggles.
// Lines for disabled toggles are omitted; custom replace rules append one line
// per rule.
func BuildInstructions(settings config.Settings) string {
	lines := []string{"あなたは入力テキストを自然な文に整形します。"}

	if settings.NaturalizeExpressions {
		lines = append(lines, "不自然な口語のつなぎを自然に置換します。")
	}
	if settings.AutoPunctuation {
		lines = append(lines, "句読点を適切に挿入します。")
	}
	if settings.UnifyForeignWords {
		lines = append(lines, "外来語の表記を統一します（全角/半角の揺れも統一）。")
	}
	if settings.PreserveOriginalProperNouns {
		lines = append(lines, "固有名詞は原文のまま保持します。")
	}
	if settings.NoSummaryOrEmbellishment {
		lines = append(lines, "要約や脚色はしません。事実の追加・削除も行いません。")
	}
	lines = append(lines, "出力は入力と同じ言語で返してください。")

	for _, rule := range settings.CustomReplaceRules {
		lines = append(lines, fmt.Sprintf("次の置換規則を適用: /%s/ -> %s", rule.Pattern, rule.Replace))
	}

	return strings.Join(lines, "\n")
}
