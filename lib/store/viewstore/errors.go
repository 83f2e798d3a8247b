package viewstore

// StoreError carries the HTTP status that a view storage failure maps to.
type StoreError struct {
	Code    int
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
