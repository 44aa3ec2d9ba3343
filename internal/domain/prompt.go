package domain

import "strings"

// IdentityLockClause is the leading phrase that pins a generation to its
// reference image. When present it must survive every refinement verbatim
// and must stay at the head of the prompt.
const IdentityLockClause = "Treat the reference image as a strict visual anchor: preserve the subject's identity, shape, and materials exactly."

// GenerationPrompt is an immutable working prompt. Invariants are literal
// substrings that any rewrite of Text must carry through unchanged.
type GenerationPrompt struct {
	Text       string
	Invariants []string
	Assets     []string
}

// NewGenerationPrompt builds a prompt value and detects invariant clauses
// in the text. Currently the identity-lock clause is the only recognized
// invariant.
func NewGenerationPrompt(text string, assets ...string) GenerationPrompt {
	p := GenerationPrompt{Text: text, Assets: assets}
	if strings.Contains(text, IdentityLockClause) {
		p.Invariants = append(p.Invariants, IdentityLockClause)
	}
	return p
}

// HasIdentityLock reports whether the identity-lock clause leads the prompt.
func (p GenerationPrompt) HasIdentityLock() bool {
	return strings.HasPrefix(strings.TrimSpace(p.Text), IdentityLockClause)
}

// MissingInvariants returns the invariant substrings of p that a candidate
// rewrite dropped. A non-empty result means the rewrite is defective and
// must not be used as-is.
func (p GenerationPrompt) MissingInvariants(refined string) []string {
	var missing []string
	for _, inv := range p.Invariants {
		if !strings.Contains(refined, inv) {
			missing = append(missing, inv)
		}
	}
	return missing
}
