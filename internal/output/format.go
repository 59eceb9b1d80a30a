package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/quill/internal/model"
)

// Format selects how results are rendered.
type Format string

const (
	JSON Format = "json"
	Text Format = "text"
)

// ParseFormat maps a flag value to a Format. Unknown values are an error.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", JSON:
		return JSON, nil
	case Text:
		return Text, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or text)", s)
}

// Record is the wire shape of a result, shared with the HTTP response.
type Record struct {
	OriginalText string          `json:"original_text"`
	Corrected    string          `json:"corrected"`
	ErrorType    model.ErrorType `json:"error_type"`
}

// FromResult converts a result to its wire shape.
func FromResult(res model.CorrectionResult) Record {
	return Record{
		OriginalText: res.OriginalText,
		Corrected:    res.CorrectedText,
		ErrorType:    res.ErrorType,
	}
}

// FormatText renders a result as a single tab-separated line:
// label, original, corrected.
func FormatText(res model.CorrectionResult) string {
	return fmt.Sprintf("%s\t%s\t%s", res.ErrorType, oneLine(res.OriginalText), res.CorrectedText)
}

// oneLine keeps multi-line input from breaking the line-per-result layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
