package errors

import "errors"

var (
	ErrInvalid              = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrInputUnavailable     = errors.New("input unavailable")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrEmbedding            = errors.New("embedding failed")
	ErrStore                = errors.New("vector store failed")
	ErrIndexCreateTimeout   = errors.New("index creation timed out")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsInputUnavailable(err error) bool {
	return errors.Is(err, ErrInputUnavailable)
}
