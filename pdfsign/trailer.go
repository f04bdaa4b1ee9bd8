package pdfsign

import (
	"fmt"
)

// writeTrailer appends a fresh trailer dictionary rather than patching the
// existing one in place. The teacher edits the prior trailer's text with
// targeted string replacement of Root/Size/Prev, which is fragile against
// any deviation in the source document's trailer formatting; since this
// package only supports table-form xref, the format of a new trailer
// object is fully under our control and a clean rewrite is simpler and
// more robust than reproducing that fragility.
func writeTrailer(buf *mutationContext, size int64, rootID uint32, prevStart, xrefStart int64) {
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root %d 0 R /Prev %d >>\n", size, rootID, prevStart)
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefStart)
}
