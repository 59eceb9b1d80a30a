package classifier

import (
	"strings"
	"unicode"

	"github.com/crimson-sun/quill/internal/model"
)

// Rule is one entry of the decision list.
type Rule struct {
	Label model.ErrorType
	Desc  string
	Match func(original, corrected string) bool
}

// DefaultRules returns the built-in decision list. Order is part of the
// contract: a pair that changes both a question mark and capitalization is
// labeled Punctuation.
func DefaultRules() []Rule {
	return []Rule{
		{
			Label: model.NoError,
			Desc:  "Texts are equal ignoring case and surrounding whitespace",
			Match: sameText,
		},
		{
			Label: model.Punctuation,
			Desc:  "A question mark in the original is missing from the correction",
			Match: droppedQuestionMark,
		},
		{
			Label: model.Capitalization,
			Desc:  "The correction introduces an uppercase letter absent from the original",
			Match: newUppercase,
		},
		catchAll(),
	}
}

func catchAll() Rule {
	return Rule{
		Label: model.GrammarSyntax,
		Desc:  "Any other change",
		Match: func(string, string) bool { return true },
	}
}

func sameText(original, corrected string) bool {
	return strings.EqualFold(strings.TrimSpace(original), strings.TrimSpace(corrected))
}

func droppedQuestionMark(original, corrected string) bool {
	return strings.ContainsRune(original, '?') && !strings.ContainsRune(corrected, '?')
}

// newUppercase reports whether corrected holds an uppercase letter that never
// appears as an uppercase letter anywhere in original.
func newUppercase(original, corrected string) bool {
	seen := make(map[rune]struct{})
	for _, r := range original {
		if unicode.IsUpper(r) {
			seen[r] = struct{}{}
		}
	}
	for _, r := range corrected {
		if !unicode.IsUpper(r) {
			continue
		}
		if _, ok := seen[r]; !ok {
			return true
		}
	}
	return false
}
