package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "ok"},
		{StatusNotFound, "not-found"},
		{StatusInvalidArgs, "invalid-args"},
		{StatusNotConfigured, "not-configured"},
		{StatusNotImplemented, "not-implemented"},
		{StatusNotSupported, "not-supported"},
		{StatusAlreadyBound, "already-bound"},
		{Status(-999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_Error(t *testing.T) {
	tests := []struct {
		status  Status
		wantErr error
	}{
		{StatusOK, nil},
		{StatusNotFound, ErrNotFound},
		{StatusNotReady, ErrNotReady},
		{StatusInvalidArgs, ErrInvalidArgs},
		{StatusNotConfigured, ErrNotConfigured},
		{StatusAlreadyBound, ErrAlreadyBound},
		{Status(-999), ErrGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			err := tt.status.Error()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Status.Error() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Status.Error() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"sentinel", ErrNotSupported, StatusNotSupported},
		{"wrapped", fmt.Errorf("sai0: %w", ErrNotImplemented), StatusNotImplemented},
		{"foreign", errors.New("boom"), StatusGeneric},
		{"joined", errors.Join(ErrInvalidArgs, ErrNotFound), StatusNotFound},
		{"joined reversed", errors.Join(ErrNotFound, ErrInvalidArgs), StatusNotFound},
		{"joined with generic", errors.Join(ErrGeneric, fmt.Errorf("gic: %w", ErrBusy)), StatusBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 32 {
				if got := StatusOf(tt.err); got != tt.want {
					t.Fatalf("StatusOf() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
