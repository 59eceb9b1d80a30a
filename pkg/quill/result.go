package quill

import "github.com/crimson-sun/quill/internal/model"

// Result is a corrected sentence with its label.
// This is the stable public type; internal representations may change
// without breaking consumers.
type Result struct {
	OriginalText string `json:"original_text"` // Input, unmodified
	Corrected    string `json:"corrected"`     // Whitespace-normalized correction
	ErrorType    string `json:"error_type"`    // One of the labels below
}

// Labels of the error-type vocabulary.
const (
	NoError        = string(model.NoError)
	Punctuation    = string(model.Punctuation)
	Capitalization = string(model.Capitalization)
	GrammarSyntax  = string(model.GrammarSyntax)
)

// ErrNoText is returned for empty or whitespace-only input. The model is not
// invoked.
var ErrNoText = model.ErrValidation

func resultFromModel(r model.CorrectionResult) Result {
	return Result{
		OriginalText: r.OriginalText,
		Corrected:    r.CorrectedText,
		ErrorType:    string(r.ErrorType),
	}
}
