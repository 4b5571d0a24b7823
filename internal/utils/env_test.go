package utils

import "testing"

func TestGetEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "")
	if got := GetEnv("UTILS_TEST_STR", "fallback", nil); got != "fallback" {
		t.Fatalf("GetEnv: want=fallback got=%q", got)
	}
	t.Setenv("UTILS_TEST_STR", "set")
	if got := GetEnv("UTILS_TEST_STR", "fallback", nil); got != "set" {
		t.Fatalf("GetEnv: want=set got=%q", got)
	}
}

func TestGetEnvAsIntAndBool(t *testing.T) {
	t.Setenv("UTILS_TEST_INT", "8080")
	if got := GetEnvAsInt("UTILS_TEST_INT", 1, nil); got != 8080 {
		t.Fatalf("GetEnvAsInt: want=8080 got=%d", got)
	}
	t.Setenv("UTILS_TEST_INT", "x")
	if got := GetEnvAsInt("UTILS_TEST_INT", 1, nil); got != 1 {
		t.Fatalf("GetEnvAsInt fallback: want=1 got=%d", got)
	}
	t.Setenv("UTILS_TEST_BOOL", "on")
	if !GetEnvAsBool("UTILS_TEST_BOOL", false, nil) {
		t.Fatalf("GetEnvAsBool: want=true")
	}
}
