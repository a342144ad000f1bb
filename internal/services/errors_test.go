package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"chapterize/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "remux", "strip", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"remux", "strip", "ffmpeg failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrUnexpected) {
		t.Fatalf("expected unexpected marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrToolMissing, "deps", "resolve", "ffmpeg", nil), "tool_missing"},
		{services.Wrap(services.ErrTimeout, "remux", "inject", "", nil), "timeout"},
		{fmt.Errorf("outer: %w", services.ErrExternalTool), "process"},
		{services.Wrap(services.ErrAccess, "batch", "list", "", nil), "access"},
		{services.ErrValidation, "validation"},
		{services.ErrParse, "parse"},
		{services.ErrBusy, "busy"},
		{errors.New("other"), "unexpected"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Fatalf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
