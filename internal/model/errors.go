package model

import (
	"errors"
	"fmt"
)

// ErrValidation marks input rejected before it reaches the engine.
var ErrValidation = errors.New("no text provided")

// EngineError wraps any failure raised while tokenizing or generating.
// It is never retried.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s engine: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// StartupError is a failure to load the engine at process start. Fatal.
type StartupError struct {
	Component string
	Err       error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: %s: %v", e.Component, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
