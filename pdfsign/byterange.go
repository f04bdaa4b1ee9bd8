package pdfsign

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
)

// contentsSearchSafetyBound caps how far from EOF the /Contents window may
// legitimately sit. An input PDF crafted with a spurious earlier
// "/Contents<...>" literal deep inside old content streams must not be
// mistaken for the real, freshly appended placeholder.
const contentsSearchSafetyBound = 1 << 20 // ~1 MiB

// locateContentsWindow scans doc from the end for the last occurrence of
// the /Contents hex-string opener, handling both "/Contents<" and
// "/Contents <" spacing, per section 4.3 step 7. It returns the offset of
// the opening '<' and one past the closing '>'.
func locateContentsWindow(doc []byte) (openAngle, closeAngle int64, err error) {
	candidates := []string{"/Contents<", "/Contents <"}

	best := -1
	for _, pattern := range candidates {
		idx := bytes.LastIndex(doc, []byte(pattern))
		if idx == -1 {
			continue
		}
		openPos := idx + len(pattern) - 1 // position of the opening '<'
		if openPos > best {
			best = openPos
		}
	}
	if best == -1 {
		return 0, 0, fmt.Errorf("pdfsign: could not locate /Contents placeholder")
	}

	if len(doc)-best > contentsSearchSafetyBound {
		return 0, 0, fmt.Errorf("pdfsign: /Contents placeholder is implausibly far (%d bytes) from EOF, refusing a possibly spoofed match", len(doc)-best)
	}

	closeIdx := bytes.IndexByte(doc[best:], '>')
	if closeIdx == -1 {
		return 0, 0, fmt.Errorf("pdfsign: /Contents placeholder has no closing '>'")
	}

	return int64(best), int64(best + closeIdx + 1), nil
}

// computeByteRange derives the four /ByteRange integers from the Contents
// window boundaries and the total document length.
func computeByteRange(docLen int, openAngle, closeAngle int64) [4]int64 {
	return [4]int64{0, openAngle, closeAngle, int64(docLen) - closeAngle}
}

// writeByteRange overwrites the /ByteRange placeholder in doc in place with
// the real values, space-padded to the placeholder's original width.
func writeByteRange(doc []byte, br [4]int64) error {
	rendered := fmt.Sprintf("/ByteRange[%d %d %d %d]", br[0], br[1], br[2], br[3])
	if len(rendered) > len(byteRangePlaceholder) {
		return fmt.Errorf("pdfsign: ByteRange value %q does not fit the %d-byte placeholder", rendered, len(byteRangePlaceholder))
	}
	rendered += strings.Repeat(" ", len(byteRangePlaceholder)-len(rendered))

	idx := bytes.Index(doc, []byte(byteRangePlaceholder))
	if idx == -1 {
		return fmt.Errorf("pdfsign: could not find ByteRange placeholder to rewrite")
	}
	copy(doc[idx:idx+len(rendered)], rendered)
	return nil
}

// spliceContents overwrites the bytes strictly between the Contents
// window's angle brackets with hexUpper, which must be exactly as wide as
// the window.
func spliceContents(doc []byte, openAngle, closeAngle int64, hexUpper string) error {
	want := int(closeAngle-openAngle) - 2
	if len(hexUpper) != want {
		return fmt.Errorf("pdfsign: encoded signature is %d characters, window is %d", len(hexUpper), want)
	}
	copy(doc[openAngle+1:closeAngle-1], hexUpper)
	return nil
}

// DocumentDigest computes the SHA-256 digest over the two ByteRange spans:
// everything except the hex window and its angle brackets, as required by
// section 4.4 step 3 and the invariant in section 8.
func DocumentDigest(doc []byte, br [4]int64) [32]byte {
	h := sha256.New()
	h.Write(doc[br[0] : br[0]+br[1]])
	h.Write(doc[br[2] : br[2]+br[3]])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
