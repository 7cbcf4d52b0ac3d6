package model

// ErrorKind tags a domain error for HTTP-class mapping at the edge and for
// errors.As dispatch deeper in the call stack.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindNotFound          ErrorKind = "not_found"
	KindPersistence       ErrorKind = "persistence_error"
	KindRemoteService     ErrorKind = "remote_service_error"
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindConfig            ErrorKind = "config_error"
)

// KindedError is a domain error carrying a classification alongside the
// wrapped cause, so callers can errors.As to the kind without losing the
// underlying message.
type KindedError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *KindedError) Unwrap() error { return e.Err }

func NewValidationError(err error) error {
	return &KindedError{Kind: KindValidation, Err: err}
}

func NewNotFoundError(err error) error {
	return &KindedError{Kind: KindNotFound, Err: err}
}

func NewPersistenceError(err error) error {
	return &KindedError{Kind: KindPersistence, Err: err}
}

func NewRemoteServiceError(err error) error {
	return &KindedError{Kind: KindRemoteService, Err: err}
}

func NewDimensionMismatchError(err error) error {
	return &KindedError{Kind: KindDimensionMismatch, Err: err}
}

func NewConfigError(err error) error {
	return &KindedError{Kind: KindConfig, Err: err}
}
