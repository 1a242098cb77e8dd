package logger

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"john.doe@example.com": "joh***@example.com",
		"a@x.com":              "a***@x.com",
		"not-an-email":         "***",
	}
	for input, want := range cases {
		if got := MaskEmail(input); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("5551234567"); got != "55***4567" {
		t.Fatalf("unexpected masked phone %q", got)
	}
	if got := MaskPhone("123"); got != "***" {
		t.Fatalf("unexpected masked short phone %q", got)
	}
}

func TestMaskIP(t *testing.T) {
	if got := MaskIP("192.168.1.100"); got != "192.168.*.*" {
		t.Fatalf("unexpected masked ipv4 %q", got)
	}
	if got := MaskIP("2001:0db8:85a3:0000:0000:8a2e:0370:7334"); got != "2001:0db8:85a3:0000:*:*:*:*" {
		t.Fatalf("unexpected masked ipv6 %q", got)
	}
}

func TestContextFields(t *testing.T) {
	if fields := ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields for empty context, got %d", len(fields))
	}

	ctx := ContextWithRequestID(context.Background(), "req-1")
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected request and trace fields, got %d", len(fields))
	}
	if fields[0].String != "req-1" {
		t.Fatalf("unexpected request id field %q", fields[0].String)
	}
	if fields[1].String != traceID.String() {
		t.Fatalf("unexpected trace id field %q", fields[1].String)
	}
}
