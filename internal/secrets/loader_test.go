package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "password")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	t.Setenv("CLARITY_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		wantErr string
	}{
		{name: "file wins", src: Source{File: file, Env: "CLARITY_TEST_SECRET", Value: "inline"}, expect: "from-file"},
		{name: "env over value", src: Source{Env: "CLARITY_TEST_SECRET", Value: "inline"}, expect: "from-env"},
		{name: "unset env falls back", src: Source{Env: "CLARITY_TEST_UNSET", Value: " inline "}, expect: "inline"},
		{name: "empty file", src: Source{Name: "password", File: empty}, wantErr: "password file"},
		{name: "missing file", src: Source{Name: "password", File: filepath.Join(dir, "nope")}, wantErr: "reading password"},
		{name: "nothing configured", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
