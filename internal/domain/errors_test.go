package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind ErrorKind
	}{
		{"transport", TransportError(503, "service unavailable"), KindTransport},
		{"schema", SchemaError("data.getContext", "missing", nil), KindSchema},
		{"backend", BackendError("degraded"), KindBackend},
		{"not found", NotFoundError([]string{"123"}), KindNotFound},
		{"format", FormatError("bad amount", nil), KindFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, &Error{Kind: tt.kind}) {
				t.Errorf("errors.Is should match kind %s", tt.kind)
			}
			for _, other := range []ErrorKind{KindTransport, KindSchema, KindBackend, KindNotFound, KindFormat} {
				if other == tt.kind {
					continue
				}
				if errors.Is(tt.err, &Error{Kind: other}) {
					t.Errorf("errors.Is should not match kind %s", other)
				}
			}
		})
	}
}

func TestErrorAsPreservesDetail(t *testing.T) {
	wrapped := fmt.Errorf("get_transactions: %w", TransportError(401, "unauthorized"))

	var ferr *Error
	if !errors.As(wrapped, &ferr) {
		t.Fatal("errors.As should find *Error through wrapping")
	}
	if ferr.Status != 401 {
		t.Errorf("Status = %d; want 401", ferr.Status)
	}
	if ferr.Body != "unauthorized" {
		t.Errorf("Body = %q; want %q", ferr.Body, "unauthorized")
	}
}

func TestNotFoundErrorListsAllMissing(t *testing.T) {
	err := NotFoundError([]string{"111", "333"})

	if len(err.Missing) != 2 {
		t.Fatalf("Missing has %d entries; want 2", len(err.Missing))
	}
	msg := err.Error()
	if !strings.Contains(msg, "111") || !strings.Contains(msg, "333") {
		t.Errorf("message %q should name both missing numbers", msg)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := FormatError("unparseable date", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}
