package pkg

import "errors"

// Kernel status errors.
var (
	// ErrGeneric indicates an unspecified failure.
	ErrGeneric = errors.New("generic error")

	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotReady indicates a dependency has not been brought up yet.
	ErrNotReady = errors.New("not ready")

	// ErrNoMemory indicates an allocation failed or a fixed table is full.
	ErrNoMemory = errors.New("insufficient memory")

	// ErrNotValid indicates an object in an invalid state.
	ErrNotValid = errors.New("not valid")

	// ErrInvalidArgs indicates an invalid argument was provided.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrTimedOut indicates an operation did not complete in time.
	ErrTimedOut = errors.New("timed out")

	// ErrAlreadyExists indicates a duplicate registration.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotSupported indicates the driver does not support the operation.
	ErrNotSupported = errors.New("not supported")

	// ErrNotImplemented indicates the driver does not implement the operation.
	ErrNotImplemented = errors.New("not implemented")

	// ErrBusy indicates the resource is busy.
	ErrBusy = errors.New("resource busy")

	// ErrNotConfigured indicates the device has no driver operations bound.
	ErrNotConfigured = errors.New("not configured")

	// ErrAlreadyBound indicates no free handler slot remains for a vector.
	ErrAlreadyBound = errors.New("already bound")
)

// Status is a signed kernel status code. Zero means success and every
// failure is negative.
type Status int32

// Status codes.
const (
	StatusOK             Status = 0
	StatusGeneric        Status = -1
	StatusNotFound       Status = -2
	StatusNotReady       Status = -3
	StatusNoMemory       Status = -5
	StatusNotValid       Status = -7
	StatusInvalidArgs    Status = -8
	StatusTimedOut       Status = -13
	StatusAlreadyExists  Status = -14
	StatusNotSupported   Status = -24
	StatusNotImplemented Status = -27
	StatusBusy           Status = -33
	StatusNotConfigured  Status = -38
	StatusAlreadyBound   Status = -45
)

// statusErrors pairs each status with its sentinel error. [StatusOf] takes
// the first match, so an error wrapping several sentinels maps to the one
// listed first. ErrGeneric stays last.
var statusErrors = []struct {
	status Status
	err    error
}{
	{StatusNotFound, ErrNotFound},
	{StatusNotReady, ErrNotReady},
	{StatusNoMemory, ErrNoMemory},
	{StatusNotValid, ErrNotValid},
	{StatusInvalidArgs, ErrInvalidArgs},
	{StatusTimedOut, ErrTimedOut},
	{StatusAlreadyExists, ErrAlreadyExists},
	{StatusNotSupported, ErrNotSupported},
	{StatusNotImplemented, ErrNotImplemented},
	{StatusBusy, ErrBusy},
	{StatusNotConfigured, ErrNotConfigured},
	{StatusAlreadyBound, ErrAlreadyBound},
	{StatusGeneric, ErrGeneric},
}

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusGeneric:
		return "generic"
	case StatusNotFound:
		return "not-found"
	case StatusNotReady:
		return "not-ready"
	case StatusNoMemory:
		return "no-memory"
	case StatusNotValid:
		return "not-valid"
	case StatusInvalidArgs:
		return "invalid-args"
	case StatusTimedOut:
		return "timed-out"
	case StatusAlreadyExists:
		return "already-exists"
	case StatusNotSupported:
		return "not-supported"
	case StatusNotImplemented:
		return "not-implemented"
	case StatusBusy:
		return "busy"
	case StatusNotConfigured:
		return "not-configured"
	case StatusAlreadyBound:
		return "already-bound"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the status, or nil for
// [StatusOK]. Unknown negative codes map to [ErrGeneric].
func (s Status) Error() error {
	if s == StatusOK {
		return nil
	}
	for _, e := range statusErrors {
		if e.status == s {
			return e.err
		}
	}
	return ErrGeneric
}

// StatusOf returns the status code carried by err. Wrapped sentinel errors
// are recognized with [errors.Is]; anything else is [StatusGeneric]. An
// error joining several sentinels always yields the same status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for _, e := range statusErrors {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return StatusGeneric
}
