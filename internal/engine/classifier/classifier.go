package classifier

import (
	"github.com/crimson-sun/quill/internal/model"
)

// Classifier assigns a coarse error label to an (original, corrected) pair
// by walking an ordered decision list. The first matching rule wins; later
// rules are not evaluated.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier over the given rules. Rules with a label outside
// the closed vocabulary or without a Match func are dropped. If nothing is
// left the list falls back to DefaultRules. A list that does not end in a
// Grammar/Syntax rule gets the catch-all appended, so every result and every
// entry of Rules is a valid label.
func New(rules []Rule) *Classifier {
	kept := make([]Rule, 0, len(rules)+1)
	for _, r := range rules {
		if r.Label.Valid() && r.Match != nil {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return &Classifier{rules: DefaultRules()}
	}
	if kept[len(kept)-1].Label != model.GrammarSyntax {
		kept = append(kept, catchAll())
	}
	return &Classifier{rules: kept}
}

// Classify returns exactly one label for any two strings. It never fails.
func (c *Classifier) Classify(original, corrected string) model.ErrorType {
	for _, r := range c.rules {
		if r.Match(original, corrected) {
			return r.Label
		}
	}
	return model.GrammarSyntax
}

// Rules returns the decision list in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

var std = New(nil)

// Classify applies the default decision list.
func Classify(original, corrected string) model.ErrorType {
	return std.Classify(original, corrected)
}
