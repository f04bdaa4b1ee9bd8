package pdfsign

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"
)

// Annotation flags, table 165 of ISO 32000-1. Locked keeps Acrobat from
// letting a user drag the field after it carries a signature.
const (
	annotationFlagPrint  = 1 << 2
	annotationFlagLocked = 1 << 7
)

// buildWidgetAnnotation renders the signature field's widget annotation
// object body, referencing the signature dictionary via /V and, when
// visible, an appearance stream via /AP. Grounded on the teacher's
// createVisualSignature, generalized to this package's object numbering.
func buildWidgetAnnotation(opts Options, root pdf.Value, sigObjectID, appearanceObjectID uint32, fieldName string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<<\n")
	buf.WriteString("  /Type /Annot\n")
	buf.WriteString("  /Subtype /Widget\n")

	if opts.Visible {
		fmt.Fprintf(&buf, "  /Rect [%g %g %g %g]\n", opts.Rect[0], opts.Rect[1], opts.Rect[2], opts.Rect[3])
		fmt.Fprintf(&buf, "  /AP << /N %d 0 R >>\n", appearanceObjectID)
	} else {
		buf.WriteString("  /Rect [0 0 0 0]\n")
	}

	if pages := root.Key("Pages"); !pages.IsNull() {
		page, err := findPageByNumber(pages, opts.Page)
		if err != nil {
			return nil, newParseError(ParseKindGeneric, "locate signature page", err)
		}
		ptr := page.GetPtr()
		fmt.Fprintf(&buf, "  /P %d %d R\n", ptr.GetID(), ptr.GetGen())
	}

	fmt.Fprintf(&buf, "  /F %d\n", annotationFlagPrint|annotationFlagLocked)
	buf.WriteString("  /FT /Sig\n")
	fmt.Fprintf(&buf, "  /T %s\n", pdfString(fieldName))
	fmt.Fprintf(&buf, "  /V %d 0 R\n", sigObjectID)
	buf.WriteString(">>\n")

	return buf.Bytes(), nil
}
