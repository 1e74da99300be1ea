package reasoning

import "fmt"

// TransportError covers failures before an HTTP response arrives: DNS,
// connection refused, client timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reasoning transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from the reasoning service. Body keeps
// the raw response text for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("reasoning upstream: status %d: %s", e.Status, e.Body)
}

// ParseError is a 2xx response whose body did not have the expected shape.
type ParseError struct {
	Err error
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("reasoning parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
