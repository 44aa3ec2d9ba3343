package prompt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"adstudio/internal/domain"
)

// DegradedRefine is the offline fallback: a deterministic concatenation of
// the current prompt and the instruction. It re-asserts the identity-lock
// clause at the head when the input carried one, so degraded mode cannot
// silently drop the invariant.
func DegradedRefine(current domain.GenerationPrompt, instruction string, newAssets []string) string {
	var parts []string

	body := strings.TrimSpace(current.Text)
	if current.HasIdentityLock() {
		parts = append(parts, domain.IdentityLockClause)
		body = strings.TrimSpace(strings.TrimPrefix(body, domain.IdentityLockClause))
	}
	if body != "" {
		parts = append(parts, body)
	}
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		parts = append(parts, instruction)
	}
	if mention := assetMention(newAssets); mention != "" {
		parts = append(parts, mention)
	}
	return strings.Join(parts, " ")
}

func assetMention(newAssets []string) string {
	titler := cases.Title(language.Und)
	var names []string
	for _, asset := range newAssets {
		if asset = strings.TrimSpace(asset); asset != "" {
			names = append(names, titler.String(asset))
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "Include the following reference assets: " + strings.Join(names, ", ") + "."
}
