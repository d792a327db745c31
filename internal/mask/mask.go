// Package mask applies DLP scanning and masking rules to transcript text.
package mask

import (
	"errors"
	"fmt"
	"regexp"

	"dicto/internal/config"
)

// ErrBlocked is returned when dlpAction=block and sensitive content is found.
var ErrBlocked = errors.New("dlp: sensitive content blocked")

var (
	emailRE = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phoneRE = regexp.MustCompile(`(?:\+?\d{1,4}[-\s]?)?(?:\(?\d{2,4}\)?[-\s]?)?(?:\d{2,4}[-\s]?){2,3}`)
	// Runs of six or more digits: account numbers, IDs, card fragments.
	numberSeqRE = regexp.MustCompile(`\d{6,}`)
)

const (
	emailMask  = "＜メール＞"
	phoneMask  = "＜電話番号＞"
	numberMask = "＜数列＞"
)

// Apply runs the DLP scan and masking pass over input according to settings,
// then applies custom replace rules. dlpAction=block aborts with ErrBlocked
// when sensitive content is present; warn proceeds unchanged.
func Apply(settings config.Settings, input string) (string, error) {
	out := input

	if settings.EnableDLPScan {
		hasSensitive := emailRE.MatchString(out) || phoneRE.MatchString(out) || numberSeqRE.MatchString(out)
		if hasSensitive && settings.DLPAction == "block" {
			return "", ErrBlocked
		}
	}

	if settings.MaskEmail {
		out = emailRE.ReplaceAllString(out, emailMask)
	}
	if settings.MaskPhone {
		out = phoneRE.ReplaceAllString(out, phoneMask)
	}
	if settings.MaskNumbers {
		out = numberSeqRE.ReplaceAllString(out, numberMask)
	}
	// TODO: maskAddress and maskNames need locale resources before they can
	// match anything useful; the toggles are accepted but inert for now.

	out = applyCustomRules(settings.CustomReplaceRules, out)
	return out, nil
}

// applyCustomRules runs each user rule in order. A rule whose pattern fails
// to compile is skipped.
func applyCustomRules(rules []config.ReplaceRule, input string) string {
	out := input
	for _, rule := range rules {
		pattern := rule.Pattern
		if rule.Flags != "" {
			pattern = fmt.Sprintf("(?%s)%s", rule.Flags, rule.Pattern)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		out = re.ReplaceAllString(out, rule.Replace)
	}
	return out
}
