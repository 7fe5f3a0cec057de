package types

// BadRequestError marks a request that failed parsing or validation.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string { return e.Err.Error() }

func (e *BadRequestError) Unwrap() error { return e.Err }

// BadRequest wraps err as a BadRequestError; nil stays nil.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}
	return &BadRequestError{Err: err}
}
