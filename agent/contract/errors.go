package contract

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnknownStage   = errors.New("no stage registered for plan step")
	ErrInvalidContext = errors.New("stage output does not match working context")
	ErrToolFailed     = errors.New("text tool failed")
)
