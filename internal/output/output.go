package output

import (
	"context"

	"github.com/crimson-sun/quill/internal/model"
)

// Output defines the interface for correction result destinations.
type Output interface {
	Write(ctx context.Context, res model.CorrectionResult) error
	Close() error
}
