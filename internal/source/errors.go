package source

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBody is returned when the upstream answered 200 with no content.
	ErrEmptyBody = errors.New("empty response body")
	// ErrStampNotFound means the index page carried no parsable "updated" stamp.
	ErrStampNotFound = errors.New("last-updated stamp not found")
)

// FetchError is returned once every retry of an upstream request failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is (or wraps) a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
