package dashapi

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	// KindTransport covers dial, TLS, timeout and body read failures
	KindTransport Kind = iota + 1
	// KindStatus is a non 2xx response
	KindStatus
	// KindPayload is a body that is not the JSON we expected
	KindPayload
	// KindInput is a request rejected before anything was sent
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindPayload:
		return "payload"
	case KindInput:
		return "input"
	}
	return "unknown"
}

// ErrInvalidFileType is wrapped in the KindInput error of an upload whose
// file is not a CSV
var ErrInvalidFileType = errors.New("invalid file type, please upload a .csv file")

// Error is the failure of one backend call
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of kind k
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
