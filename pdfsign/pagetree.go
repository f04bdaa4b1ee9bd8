package pdfsign

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"
)

// findPageByNumber walks the page tree rooted at pages (the catalog's /Pages
// entry) and returns the nth page, 1-indexed, in document order.
func findPageByNumber(pages pdf.Value, pageNumber uint32) (pdf.Value, error) {
	page, remaining, err := findPageByNumberRec(pages, pageNumber)
	if err != nil {
		return pdf.Value{}, err
	}
	if remaining != 0 {
		return pdf.Value{}, fmt.Errorf("page number %d not found", pageNumber)
	}
	return page, nil
}

func findPageByNumberRec(pages pdf.Value, pageNumber uint32) (pdf.Value, uint32, error) {
	switch pages.Key("Type").Name() {
	case "Pages":
		kids := pages.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			page, remaining, err := findPageByNumberRec(kids.Index(i), pageNumber)
			if err == nil && remaining == 0 {
				return page, 0, nil
			}
			pageNumber = remaining
		}
		return pdf.Value{}, pageNumber, fmt.Errorf("page number %d not found", pageNumber)
	case "Page":
		if pageNumber == 1 {
			return pages, 0, nil
		}
		return pdf.Value{}, pageNumber - 1, nil
	default:
		return pdf.Value{}, pageNumber, fmt.Errorf("page number %d not found", pageNumber)
	}
}

// rewritePageWithAnnotation re-serializes an existing page object, copying
// every key through unchanged except Annots, which gains a reference to the
// new widget. The result is written back under the page's own object
// number, shadowing the original via the incremental xref table.
func rewritePageWithAnnotation(page pdf.Value, widgetID uint32) []byte {
	var buf bytes.Buffer

	buf.WriteString("<<\n")
	sawAnnots := false
	for _, key := range page.Keys() {
		if key == "Annots" {
			sawAnnots = true
			buf.WriteString("  /Annots [\n")
			annots := page.Key(key)
			for i := 0; i < annots.Len(); i++ {
				ptr := annots.Index(i).GetPtr()
				fmt.Fprintf(&buf, "    %d %d R\n", ptr.GetID(), ptr.GetGen())
			}
			fmt.Fprintf(&buf, "    %d 0 R\n", widgetID)
			buf.WriteString("  ]\n")
			continue
		}
		fmt.Fprintf(&buf, "  /%s ", key)
		serializeValue(&buf, page.Key(key))
		buf.WriteString("\n")
	}
	if !sawAnnots {
		fmt.Fprintf(&buf, "  /Annots [%d 0 R]\n", widgetID)
	}
	buf.WriteString(">>\n")
	return buf.Bytes()
}
