package pdfsign

import (
	"fmt"

	"github.com/digitorus/pdf"
)

// newXrefEntry pairs an object number with the file offset of its "N G obj"
// keyword in the appended incremental update, for writing into the new
// xref subsection that shadows or extends the original table.
type newXrefEntry struct {
	id     uint32
	offset int64
}

// writeIncrementalXref appends a table-form xref section covering exactly
// the objects touched by this update. Each entry gets its own one-line
// subsection header, since an overridden object's number (the catalog, a
// rewritten page) is rarely contiguous with the freshly allocated ones
// (widget, signature, appearance). Grounded on the teacher's
// writeIncrXrefTable, generalized to non-contiguous object numbers.
//
// Object-stream xref ("stream" XrefInformation.Type) input is out of scope;
// callers must reject it before reaching here.
func writeIncrementalXref(buf *mutationContext, entries []newXrefEntry) {
	buf.WriteString("xref\n")
	for _, e := range entries {
		fmt.Fprintf(buf, "%d 1\n", e.id)
		fmt.Fprintf(buf, "%010d 00000 n \r\n", e.offset)
	}
}

// requireTableXref returns an error classified as ParseKindXrefStream when
// the source document uses a cross-reference stream instead of the
// classic table form, per the reduced scope decided for this package.
func requireTableXref(reader *pdf.Reader) error {
	if reader.XrefInformation.Type != "table" {
		return newParseError(ParseKindXrefStream, fmt.Sprintf("unsupported xref type %q", reader.XrefInformation.Type), nil)
	}
	return nil
}
