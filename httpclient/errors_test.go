package httpclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status        int
		wantNil       bool
		wantCode      ErrorCode
		wantRetryable bool
	}{
		{200, true, 0, false},
		{202, true, 0, false},
		{400, false, ErrCodeValidation, false},
		{401, false, ErrCodeAuth, false},
		{403, false, ErrCodeAuth, false},
		{404, false, ErrCodeNotFound, false},
		{422, false, ErrCodeValidation, false},
		{500, false, ErrCodeServer, true},
		{502, false, ErrCodeServer, true},
		{503, false, ErrCodeUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := ClassifyStatusCode(tt.status, nil)
			if tt.wantNil {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", err.Code, tt.wantCode)
			}
			if err.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewConnectionError(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !IsConnection(err) {
		t.Error("expected IsConnection")
	}
	if !IsRetryable(err) {
		t.Error("connection errors should be retryable")
	}
}

func TestErrorCheckersOnWrappedErrors(t *testing.T) {
	err := fmt.Errorf("submit chunk 3: %w", ClassifyStatusCode(503, nil))
	if !IsUnavailable(err) {
		t.Error("IsUnavailable should see through wrapping")
	}
	if IsNotFound(err) {
		t.Error("IsNotFound should be false")
	}
}
