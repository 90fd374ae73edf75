// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithPassID(ctx, "pass-7")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id = %q, want %q", got, "req-1")
	}
	if got := PassIDFromContext(ctx); got != "pass-7" {
		t.Fatalf("pass id = %q, want %q", got, "pass-7")
	}
}

func TestFromNilContext(t *testing.T) {
	if got := RequestIDFromContext(nil); got != "" { //nolint:staticcheck // nil safety is the contract
		t.Fatalf("request id from nil context = %q, want empty", got)
	}
	if got := PassIDFromContext(nil); got != "" { //nolint:staticcheck
		t.Fatalf("pass id from nil context = %q, want empty", got)
	}
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "test"})

	ctx := ContextWithPassID(context.Background(), "pass-42")
	l := WithComponentFromContext(ctx, "jobs")
	l.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"jobs"`) {
		t.Errorf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"pass_id":"pass-42"`) {
		t.Errorf("missing pass_id field: %s", out)
	}
}
