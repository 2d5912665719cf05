// Package router classifies raw user turn text (C2): command sentinels,
// persona mentions, or plain conversational text.
package router

import (
	"strings"
	"unicode"

	"github.com/codeready-toolchain/simulator/pkg/store"
)

// Class is the outcome of Classify.
type Class string

const (
	// ClassBegin starts the run; emitted for the exact sentinel "begin".
	ClassBegin Class = "begin"
	// ClassHelp emits static help text; emitted for the exact sentinel "help".
	ClassHelp Class = "help"
	// ClassSubmit force-advances the current scene; emitted for the
	// SUBMIT_FOR_GRADING control sentinel.
	ClassSubmit Class = "submit"
	// ClassMention routes to a specific persona via an @token.
	ClassMention Class = "mention"
	// ClassPlain routes to the generic orchestrator responder.
	ClassPlain Class = "plain"
)

// SubmitForGradingSentinel is the exact control string that force-advances
// the current scene. It is never logged as a user message.
const SubmitForGradingSentinel = "SUBMIT_FOR_GRADING"

// Classification is the result of classifying one piece of raw user text.
type Classification struct {
	Class        Class
	MentionToken string // set only when Class == ClassMention
}

// IsUserTurn reports whether this classification counts as a user turn:
// increments turn_count, appends a user log row, and triggers the validator.
func (c Classification) IsUserTurn() bool {
	return c.Class == ClassMention || c.Class == ClassPlain
}

// Classify implements the classification table in first-match-wins order,
// matching case-insensitively on trimmed text.
func Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)

	if strings.EqualFold(trimmed, "begin") {
		return Classification{Class: ClassBegin}
	}
	if strings.EqualFold(trimmed, "help") {
		return Classification{Class: ClassHelp}
	}
	if strings.EqualFold(trimmed, SubmitForGradingSentinel) {
		return Classification{Class: ClassSubmit}
	}
	if token, ok := findMentionToken(trimmed); ok {
		return Classification{Class: ClassMention, MentionToken: token}
	}
	return Classification{Class: ClassPlain}
}

// findMentionToken returns the first @token found in text, where a token is
// a run of non-whitespace characters following '@'.
func findMentionToken(text string) (string, bool) {
	idx := strings.IndexByte(text, '@')
	if idx == -1 {
		return "", false
	}
	rest := text[idx+1:]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n'
	})
	if end == -1 {
		end = len(rest)
	}
	token := rest[:end]
	if token == "" {
		return "", false
	}
	return token, true
}

// normalize lowercases a string and strips punctuation/underscores/spaces,
// used on both sides of mention comparison so "@isabel_díaz", "@Isabel Díaz"
// and "isabel-diaz" all compare equal modulo the literal diacritic.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r) // letters (accents included) and digits are kept as-is
		default:
			// stripped: punctuation and separators are ignored entirely
		}
	}
	return b.String()
}

// ResolveMention resolves a raw @token to a Persona using the fuzzy rule in
// §3: match against mention id, full name, or first name, all normalized by
// lowercasing and stripping punctuation/underscores. Ambiguity resolves to
// the first match in persona declaration order -- callers MUST pass
// personas pre-sorted by DeclarationOrder.
func ResolveMention(personas []*store.Persona, token string) (*store.Persona, bool) {
	target := normalize(token)
	if target == "" {
		return nil, false
	}

	for _, p := range personas {
		if normalize(p.MentionID) == target {
			return p, true
		}
	}
	for _, p := range personas {
		if normalize(p.Name) == target {
			return p, true
		}
	}
	for _, p := range personas {
		firstName := p.Name
		if sp := strings.IndexByte(p.Name, ' '); sp != -1 {
			firstName = p.Name[:sp]
		}
		if normalize(firstName) == target {
			return p, true
		}
	}
	return nil, false
}
