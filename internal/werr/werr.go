// Package werr defines the stable error taxonomy this module's write-path
// boundary exposes, grounded on the sentinel-error + errors.Is style the
// storage layer already uses internally (see internal/storage/sqlite).
package werr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error built by this package's constructors or by
// Wrap wraps exactly one of these, so callers can classify it with
// errors.Is. Store errors that the write path returns without Wrap wrap
// none of them; KindOf classifies those as UnspecifiedError.
var (
	// ErrDoesNotExist classifies as DoesNotExistError.
	ErrDoesNotExist = errors.New("does not exist")
	// ErrBadArgument classifies as BadArgumentError.
	ErrBadArgument = errors.New("bad argument")
	// ErrInvalidDetail classifies as InvalidDetailError.
	ErrInvalidDetail = errors.New("invalid detail")
	// ErrInvalidRelationship classifies as InvalidRelationshipError.
	ErrInvalidRelationship = errors.New("invalid relationship")
	// ErrLocked classifies as LockedError: the item was rolled back
	// and was never actually persisted.
	ErrLocked = errors.New("locked")
	// ErrUnspecified classifies as UnspecifiedError: an underlying
	// store failure with no more specific classification.
	ErrUnspecified = errors.New("unspecified error")
)

// Kind is the closed set of error classifications this module's external
// boundary exposes. NoError is the zero value so a freshly-zeroed Kind
// reads as success.
type Kind int

const (
	NoError Kind = iota
	DoesNotExistError
	BadArgumentError
	InvalidDetailError
	InvalidRelationshipError
	LockedError
	UnspecifiedError
)

func (k Kind) String() string {
	switch k {
	case NoError:
		return "NoError"
	case DoesNotExistError:
		return "DoesNotExistError"
	case BadArgumentError:
		return "BadArgumentError"
	case InvalidDetailError:
		return "InvalidDetailError"
	case InvalidRelationshipError:
		return "InvalidRelationshipError"
	case LockedError:
		return "LockedError"
	case UnspecifiedError:
		return "UnspecifiedError"
	default:
		return "UnknownError"
	}
}

// KindOf classifies err by which sentinel it wraps. A nil error classifies
// as NoError; anything that wraps none of the known sentinels classifies as
// UnspecifiedError.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return NoError
	case errors.Is(err, ErrDoesNotExist):
		return DoesNotExistError
	case errors.Is(err, ErrBadArgument):
		return BadArgumentError
	case errors.Is(err, ErrInvalidDetail):
		return InvalidDetailError
	case errors.Is(err, ErrInvalidRelationship):
		return InvalidRelationshipError
	case errors.Is(err, ErrLocked):
		return LockedError
	default:
		return UnspecifiedError
	}
}

// Wrap annotates err with an operation name while preserving errors.Is
// matching against the sentinel err already wraps (or ErrUnspecified if it
// wraps none of the sentinels above).
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == UnspecifiedError && !errors.Is(err, ErrUnspecified) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnspecified, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DoesNotExist builds a DoesNotExistError for the given subject.
func DoesNotExist(subject string) error {
	return fmt.Errorf("%s: %w", subject, ErrDoesNotExist)
}

// BadArgument builds a BadArgumentError with a message.
func BadArgument(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrBadArgument)
}

// InvalidDetail builds an InvalidDetailError with a message.
func InvalidDetail(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidDetail)
}

// InvalidRelationship builds an InvalidRelationshipError with a message.
func InvalidRelationship(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidRelationship)
}
