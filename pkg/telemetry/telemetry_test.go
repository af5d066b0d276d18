package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Disable: true})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestEndRecordsStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, okSpan := tracer.Start(context.Background(), "ok")
	End(okSpan, nil)
	_, failSpan := tracer.Start(context.Background(), "fail")
	End(failSpan, errors.New("boom"))
	End(nil, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected ok status, got %v", spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "boom" {
		t.Errorf("expected error status, got %v", spans[1].Status())
	}
	if len(spans[1].Events()) == 0 {
		t.Errorf("expected recorded error event")
	}
}
