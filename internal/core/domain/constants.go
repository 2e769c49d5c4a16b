package domain

import (
	"errors"
	"fmt"
)

// ErrOperationFailed is matched by every failure of a background removal run.
var ErrOperationFailed = errors.New("operation failed")

// OperationError describes a failed run. Message is what the user sees, Err is the underlying cause.
type OperationError struct {
	Stage   Stage
	Path    string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOperationFailed}
	}
	return []error{ErrOperationFailed, e.Err}
}

func NewFileNotFoundError(path string, cause error) *OperationError {
	return &OperationError{
		Stage:   StageValidate,
		Path:    path,
		Message: "Archivo no encontrado: " + path,
		Err:     cause,
	}
}

func NewOutputExistsError(path string) *OperationError {
	return &OperationError{
		Stage:   StageSave,
		Path:    path,
		Message: fmt.Sprintf("output file already exists: %s", path),
	}
}

func NewDecodeError(path string, cause error) *OperationError {
	return &OperationError{
		Stage:   StageLoad,
		Path:    path,
		Message: fmt.Sprintf("cannot decode %s: %v", path, cause),
		Err:     cause,
	}
}

func NewRemovalError(cause error) *OperationError {
	return &OperationError{
		Stage:   StageProcess,
		Message: fmt.Sprintf("background removal failed: %v", cause),
		Err:     cause,
	}
}

func NewWriteError(path string, cause error) *OperationError {
	return &OperationError{
		Stage:   StageSave,
		Path:    path,
		Message: fmt.Sprintf("cannot write %s: %v", path, cause),
		Err:     cause,
	}
}

// NewPanicError reports a panic recovered during stage. The message follows the stage's regular failure wording.
func NewPanicError(stage Stage, path string, value any) *OperationError {
	cause := fmt.Errorf("panic: %v", value)

	switch stage {
	case StageLoad:
		return NewDecodeError(path, cause)
	case StageProcess:
		return NewRemovalError(cause)
	case StageSave:
		return NewWriteError(path, cause)
	default:
		return &OperationError{
			Stage:   stage,
			Path:    path,
			Message: fmt.Sprintf("%s failed: %v", stage, cause),
			Err:     cause,
		}
	}
}
