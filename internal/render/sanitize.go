package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidOutputDir is returned for EDL destinations that are missing,
// not directories, or not clean relative-safe paths.
var ErrInvalidOutputDir = errors.New("invalid output directory")

const (
	maxFileNameRunes = 120
	fallbackEDLName  = "heimdex_timeline"
)

// Device names Windows refuses as file names, with or without extension.
var reservedFileNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeName makes a clip or project name safe for EDL comment lines and
// file names. Control characters are dropped, each run of other unsafe
// characters becomes one '_', and the result is cut to maxLen runes when
// maxLen is positive.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	lastReplaced := false
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
			continue
		case nameRune(r):
			b.WriteRune(r)
			lastReplaced = false
		case !lastReplaced:
			b.WriteRune('_')
			lastReplaced = true
		}
	}

	out := strings.TrimSpace(b.String())
	if maxLen > 0 {
		if runes := []rune(out); len(runes) > maxLen {
			out = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return out
}

func nameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(" -_.,()", r)
}

// EDLFileName is the download name of a project's EDL. Names that would be
// empty, hidden or rejected by Windows are adjusted.
func EDLFileName(projectName string) string {
	name := strings.Trim(SanitizeName(projectName, maxFileNameRunes), ". ")
	if name == "" {
		name = fallbackEDLName
	}
	base := strings.ToUpper(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if reservedFileNames[base] {
		name = "_" + name
	}
	return name + ".edl"
}

// ValidateOutputDir checks that dir is an existing directory given as a
// clean path without parent-directory components.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidOutputDir)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: %s is not a clean path", ErrInvalidOutputDir, dir)
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("%w: %s leaves its parent", ErrInvalidOutputDir, dir)
		}
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s does not exist", ErrInvalidOutputDir, dir)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInvalidOutputDir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidOutputDir, dir)
	}
	return nil
}

// EDLPath validates dir and returns where the EDL of projectName is written.
func EDLPath(dir, projectName string) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, EDLFileName(projectName)), nil
}
