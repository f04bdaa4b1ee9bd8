package signer

import (
	"path/filepath"
	"runtime"
	"strings"
)

// systemDirs are the per-OS roots a signing request must not read from or
// write to, mirroring the same hardcoded-allow-list posture the Token
// Driver applies to the PKCS#11 library path in section 6.
func systemDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/System/", "/private/var/db/"}
	case "windows":
		return []string{`C:\Windows\`, `C:\Program Files\WindowsApps\`}
	default:
		return []string{"/etc/", "/proc/", "/sys/", "/boot/"}
	}
}

// validatePDFPath canonicalizes path and rejects non-.pdf extensions
// (case-insensitive) and paths under a system directory, per section 4.4
// step 1. It does not require the file to exist, since the output path
// legitimately does not yet.
func validatePDFPath(path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", newError(InvalidInput, "path does not have a .pdf extension", nil)
	}

	canonical, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", newError(InvalidInput, "cannot resolve path", err)
	}

	for _, dir := range systemDirs() {
		if strings.HasPrefix(canonical, dir) {
			return "", newError(InvalidInput, "path is under a system directory", nil)
		}
	}

	return canonical, nil
}
