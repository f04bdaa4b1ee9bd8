package token

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateLibraryPathRejectsDisallowedDirectory(t *testing.T) {
	dir := t.TempDir() // under the OS temp dir, never an allow-listed prefix
	lib := filepath.Join(dir, "evil"+requiredExtension())
	require.NoError(t, os.WriteFile(lib, []byte("not a real library"), 0o644))

	err := validateLibraryPath(lib)
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	require.Equal(t, KindInvalidPath, tErr.Kind)
}

func TestValidateLibraryPathRejectsWrongExtension(t *testing.T) {
	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = "/Library"
	case "windows":
		dir = `C:\Program Files`
	default:
		dir = "/usr/local/lib"
	}
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("allow-listed directory %s not present in this sandbox", dir)
	}

	lib := filepath.Join(dir, "tokensign-test-lib.txt")
	if err := os.WriteFile(lib, []byte("x"), 0o644); err != nil {
		t.Skipf("cannot write to %s in this sandbox: %v", dir, err)
	}
	defer os.Remove(lib)

	err := validateLibraryPath(lib)
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	require.Equal(t, KindInvalidPath, tErr.Kind)
}

func TestValidateLibraryPathRejectsMissingFile(t *testing.T) {
	err := validateLibraryPath(filepath.Join(t.TempDir(), "does-not-exist.so"))
	require.Error(t, err)
}

func TestDetectNeverErrors(t *testing.T) {
	// Detect must return an empty (not nil-panicking) slice when none of the
	// hardcoded vendor paths exist, which is the common case in CI.
	found := Detect()
	for _, f := range found {
		require.NotEmpty(t, f.CAName)
		require.NotEmpty(t, f.Path)
	}
}
