package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"control chars", " A\nB\rC\tD\x00 ", 100, "ABCD"},
		{"allowed chars kept", "Az09 -_.,()", 100, "Az09 -_.,()"},
		{"unsafe run collapsed", "bad<>|\"name", 100, "bad_name"},
		{"separate runs", "a/b\\c", 100, "a_b_c"},
		{"truncated", "abcdefghijklmnopqrstuvwxyz", 10, "abcdefghij"},
		{"truncation trims space", "abcd efgh", 5, "abcd"},
		{"unicode letters", "Montage é", 100, "Montage é"},
		{"no limit", strings.Repeat("x", 300), 0, strings.Repeat("x", 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.in, tt.maxLen)
			if strings.ContainsAny(got, "\n\r\t\x00") {
				t.Fatalf("output contains control chars: %q", got)
			}
			if got != tt.want {
				t.Fatalf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEDLFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Cut/v2", "My Cut_v2.edl"},
		{"\x00", "heimdex_timeline.edl"},
		{"...", "heimdex_timeline.edl"},
		{".hidden", "hidden.edl"},
		{"draft.", "draft.edl"},
		{"con", "_con.edl"},
		{"LPT1.final", "_LPT1.final.edl"},
		{"Console", "Console.edl"},
		{strings.Repeat("a", 200), strings.Repeat("a", maxFileNameRunes) + ".edl"},
	}

	for _, tt := range tests {
		if got := EDLFileName(tt.in); got != tt.want {
			t.Errorf("EDLFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateOutputDir(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{"valid", tmp, false},
		{"empty", "  ", true},
		{"missing", filepath.Join(tmp, "missing"), true},
		{"traversal", "../etc", true},
		{"unclean", tmp + "/./", true},
		{"not a dir", filePath, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputDir(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateOutputDir(%q) error = %v, wantErr %v", tt.dir, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOutputDir) {
				t.Fatalf("ValidateOutputDir(%q) error = %v, want ErrInvalidOutputDir", tt.dir, err)
			}
		})
	}
}

func TestEDLPath(t *testing.T) {
	tmp := t.TempDir()

	got, err := EDLPath(tmp, "Demo: Cut")
	if err != nil {
		t.Fatalf("EDLPath() error = %v", err)
	}
	if want := filepath.Join(tmp, "Demo_ Cut.edl"); got != want {
		t.Errorf("EDLPath() = %q, want %q", got, want)
	}

	if _, err := EDLPath(filepath.Join(tmp, "nope"), "x"); !errors.Is(err, ErrInvalidOutputDir) {
		t.Errorf("EDLPath(missing) error = %v, want ErrInvalidOutputDir", err)
	}
}
