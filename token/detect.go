package token

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DetectedLibrary is one entry returned by Detect: a named vendor whose
// PKCS#11 shared library was found on this host.
type DetectedLibrary struct {
	CAName string
	Path   string
}

// knownLibrary is one row of the hardcoded per-OS probe table.
type knownLibrary struct {
	caName string
	paths  map[string]string // GOOS -> path
}

// knownLibraries mirrors the Vietnamese CA vendor table from the original
// desktop core (src-tauri/src/pkcs11/library_paths.rs): VNPT-CA, Viettel-CA,
// FPT-CA, and a generic OpenSC fallback that also covers ePass2003/Feitian
// tokens enrolled through OpenSC.
var knownLibraries = []knownLibrary{
	{
		caName: "VNPT-CA",
		paths: map[string]string{
			"darwin":  "/Library/vnpt-ca/lib/libcryptoki.dylib",
			"windows": `C:\vnpt-ca\cryptoki.dll`,
			"linux":   "/usr/lib/vnpt-ca/libcryptoki.so",
		},
	},
	{
		caName: "Viettel-CA",
		paths: map[string]string{
			"darwin":  "/usr/local/lib/viettel-ca_v6.dylib",
			"windows": `C:\Viettel-CA\pkcs11.dll`,
			"linux":   "/usr/lib/viettel-ca/libpkcs11.so",
		},
	},
	{
		caName: "FPT-CA",
		paths: map[string]string{
			"darwin":  "/Library/FPT/libpkcs11.dylib",
			"windows": `C:\FPT-CA\pkcs11.dll`,
			"linux":   "/usr/lib/fpt-ca/libpkcs11.so",
		},
	},
	{
		caName: "OpenSC (Generic PKCS#11)",
		paths: map[string]string{
			"darwin":  "/usr/local/lib/opensc-pkcs11.so",
			"windows": `C:\Program Files\OpenSC Project\OpenSC\pkcs11\opensc-pkcs11.dll`,
			"linux":   "/usr/lib/x86_64-linux-gnu/opensc-pkcs11.so",
		},
	},
}

// Detect probes the hardcoded per-OS vendor table and returns the libraries
// that exist on disk. It never returns an error: an empty slice means no
// known vendor library was found.
func Detect() []DetectedLibrary {
	var found []DetectedLibrary
	for _, lib := range knownLibraries {
		path, ok := lib.paths[runtime.GOOS]
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			found = append(found, DetectedLibrary{CAName: lib.caName, Path: path})
		}
	}
	return found
}

// allowedDirs returns the hardcoded allow-listed directory prefixes for the
// current OS, per spec.md section 6.
func allowedDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Library/", "/usr/local/lib/"}
	case "windows":
		return []string{
			`C:\Program Files\`,
			`C:\Program Files (x86)\`,
			`C:\vnpt-ca\`,
			`C:\Viettel-CA\`,
			`C:\FPT-CA\`,
		}
	default: // linux and other unix-likes
		return []string{"/usr/lib/", "/usr/local/lib/", "/opt/"}
	}
}

// requiredExtension returns the dynamic library extension expected for the
// host OS.
func requiredExtension() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// validateLibraryPath canonicalizes path and checks it against the
// hardcoded allow-list and required extension. It never follows a path that
// doesn't exist into Clean-only canonicalization: the file must exist for
// EvalSymlinks to succeed, which also rejects path-traversal tricks aimed at
// a library that isn't actually present.
func validateLibraryPath(path string) error {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return newError(KindInvalidPath, fmt.Sprintf("cannot resolve library path %q", path), err)
	}
	canonical, err = filepath.Abs(canonical)
	if err != nil {
		return newError(KindInvalidPath, fmt.Sprintf("cannot absolutize library path %q", path), err)
	}

	allowed := false
	for _, dir := range allowedDirs() {
		if strings.HasPrefix(canonical, dir) {
			allowed = true
			break
		}
	}
	if !allowed {
		return newError(KindInvalidPath, fmt.Sprintf("library path %q is not under an allow-listed directory", canonical), nil)
	}

	ext := requiredExtension()
	if !strings.HasSuffix(strings.ToLower(canonical), ext) {
		return newError(KindInvalidPath, fmt.Sprintf("library path %q does not have the expected %q extension", canonical, ext), nil)
	}

	return nil
}
