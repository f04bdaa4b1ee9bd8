package pdfsign

import (
	"bytes"
	"fmt"
	"strings"
)

// appearanceFontSize is fixed; the text-only appearance has no layout
// engine to size it dynamically.
const appearanceFontSize = 8.0

// buildAppearanceStream renders a minimal text-only appearance stream for
// the visible signature widget, using the standard (non-embedded) Helvetica
// font so no font program needs embedding. Grounded on the teacher's
// createAppearance, with font-embedding dropped per the expanded scope.
func buildAppearanceStream(rect [4]float64, text string) []byte {
	width := rect[2] - rect[0]
	height := rect[3] - rect[1]

	var content bytes.Buffer
	content.WriteString("q\n")
	fmt.Fprintf(&content, "BT\n/F1 %g Tf\n", appearanceFontSize)
	fmt.Fprintf(&content, "2 %g Td\n", height/2-appearanceFontSize/2)
	fmt.Fprintf(&content, "(%s) Tj\n", pdfEscapeLiteral(text))
	content.WriteString("ET\nQ\n")

	var obj bytes.Buffer
	obj.WriteString("<<\n")
	obj.WriteString("  /Type /XObject\n")
	obj.WriteString("  /Subtype /Form\n")
	fmt.Fprintf(&obj, "  /BBox [0 0 %g %g]\n", width, height)
	obj.WriteString("  /Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >>\n")
	fmt.Fprintf(&obj, "  /Length %d\n", content.Len())
	obj.WriteString(">>\n")
	obj.WriteString("stream\n")
	obj.Write(content.Bytes())
	obj.WriteString("\nendstream\n")

	return obj.Bytes()
}

// pdfEscapeLiteral escapes text for use inside a content stream's literal
// string operand, which has the same special characters as a dictionary
// string but is a distinct call site from pdfString.
func pdfEscapeLiteral(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "(", `\(`)
	text = strings.ReplaceAll(text, ")", `\)`)
	return text
}
