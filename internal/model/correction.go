package model

// CorrectionRequest is a single inbound correction call.
type CorrectionRequest struct {
	Text string // raw text as received; validated by the engine
}

// CorrectionResult is the corrected text and the coarse category of the change.
type CorrectionResult struct {
	OriginalText  string
	CorrectedText string    // engine output, whitespace-normalized
	ErrorType     ErrorType // always one member of ErrorTypes()
}

// ErrorType is a coarse label describing what kind of correction was applied.
type ErrorType string

const (
	NoError        ErrorType = "No Error"
	Punctuation    ErrorType = "Punctuation"
	Capitalization ErrorType = "Capitalization"
	GrammarSyntax  ErrorType = "Grammar/Syntax"
)

// ErrorTypes returns the closed vocabulary in decision order.
func ErrorTypes() []ErrorType {
	return []ErrorType{NoError, Punctuation, Capitalization, GrammarSyntax}
}

// Valid reports whether t belongs to the vocabulary.
func (t ErrorType) Valid() bool {
	for _, v := range ErrorTypes() {
		if t == v {
			return true
		}
	}
	return false
}

func (t ErrorType) String() string { return string(t) }
