package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sqliteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WATCHPOST_CONFIG", "")
	t.Setenv("WATCHPOST_DB_DRIVER", "sqlite")
	t.Setenv("WATCHPOST_DB_URL", "file:"+filepath.Join(t.TempDir(), "cli.db"))
}

func TestUsersCreateAndSweep(t *testing.T) {
	sqliteEnv(t)
	out, err := runCLI(t, "users", "create", "bob", "--role", "resolver", "--password", "s3cret")
	if err != nil {
		t.Fatalf("users create: %v", err)
	}
	if !strings.Contains(out, "created bob (resolver)") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := runCLI(t, "users", "create", "bob", "--password", "again"); err == nil {
		t.Fatalf("expected duplicate user error")
	}
	out, err = runCLI(t, "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "deleted=0") {
		t.Fatalf("unexpected sweep output %q", out)
	}
}

func TestUsersCreateRejectsPublicRole(t *testing.T) {
	sqliteEnv(t)
	if _, err := runCLI(t, "users", "create", "eve", "--role", "public", "--password", "x"); err == nil {
		t.Fatalf("expected role error")
	}
}

func TestUsersCreateRequiresPassword(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("WATCHPOST_USER_PASSWORD", "")
	if _, err := runCLI(t, "users", "create", "bob"); err == nil {
		t.Fatalf("expected missing password error")
	}
}
