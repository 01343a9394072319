package cwerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(QueueFull, "tonequeue.Enqueue", "length >= capacity")
	if !Is(err, QueueFull) {
		t.Error("Is(err, QueueFull) = false, want true")
	}
	if Is(err, NotFound) {
		t.Error("Is(err, NotFound) = true, want false")
	}
}

func TestIsUnwrapsWrappedError(t *testing.T) {
	base := New(SoundSystemUnavailable, "sink.Open", "device busy")
	wrapped := fmt.Errorf("start failed: %w", base)
	if !Is(wrapped, SoundSystemUnavailable) {
		t.Error("Is(wrapped, SoundSystemUnavailable) = false, want true")
	}
}

func TestIsFalseForPlainError(t *testing.T) {
	if Is(errors.New("boom"), Fatal) {
		t.Error("Is(plain error, Fatal) = true, want false")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(Fatal, "sink.Write", "write failed", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is(wrapped, cause) = false, want true")
	}
}

func TestKindString(t *testing.T) {
	if QueueFull.String() != "queue full" {
		t.Errorf("QueueFull.String() = %q, want %q", QueueFull.String(), "queue full")
	}
}
