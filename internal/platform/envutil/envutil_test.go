package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "12")
	if got := Int("ENVUTIL_INT", 3); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
	t.Setenv("ENVUTIL_INT", "nope")
	if got := Int("ENVUTIL_INT", 3); got != 3 {
		t.Fatalf("Int fallback: want=3 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_BOOL", "Yes")
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	t.Setenv("ENVUTIL_BOOL", "maybe")
	if Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool fallback: want=false")
	}
}

func TestSecondsClampsNegative(t *testing.T) {
	t.Setenv("ENVUTIL_SECS", "-4")
	if got := Seconds("ENVUTIL_SECS", 9); got != 0 {
		t.Fatalf("Seconds: want=0 got=%s", got)
	}
	t.Setenv("ENVUTIL_MS", "")
	if got := Millis("ENVUTIL_MS", 250); got != 250*time.Millisecond {
		t.Fatalf("Millis default: want=250ms got=%s", got)
	}
}
