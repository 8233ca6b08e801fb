package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nGYEOL_TEST_A=hello\n\nGYEOL_TEST_B = spaced \nNOVALUE\n=bad\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GYEOL_TEST_A", "")
	t.Setenv("GYEOL_TEST_B", "")
	os.Unsetenv("GYEOL_TEST_A")
	os.Unsetenv("GYEOL_TEST_B")

	loadDotEnv(path)
	if got := os.Getenv("GYEOL_TEST_A"); got != "hello" {
		t.Errorf("GYEOL_TEST_A = %q", got)
	}
	if got := os.Getenv("GYEOL_TEST_B"); got != "spaced" {
		t.Errorf("GYEOL_TEST_B = %q", got)
	}
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GYEOL_TEST_C=from_file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GYEOL_TEST_C", "from_env")

	loadDotEnv(path)
	if got := os.Getenv("GYEOL_TEST_C"); got != "from_env" {
		t.Errorf("GYEOL_TEST_C = %q", got)
	}
}

func TestLoadDotEnv_MissingFileIsNoop(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "nope.env"))
}

func TestIsAddrInUse(t *testing.T) {
	if !isAddrInUse(errors.New("listen tcp 0.0.0.0:8000: bind: address already in use")) {
		t.Error("expected addr-in-use match")
	}
	if isAddrInUse(errors.New("connection refused")) {
		t.Error("unexpected match")
	}
}

func TestPortHint(t *testing.T) {
	if hint := portHint("0.0.0.0:8000"); !strings.Contains(hint, "8000") {
		t.Errorf("hint = %q", hint)
	}
	if hint := portHint("bogus"); !strings.Contains(hint, "bogus") {
		t.Errorf("hint = %q", hint)
	}
}
