package pdfsign

import (
	"fmt"

	"github.com/digitorus/pdf"
)

// Prepare performs the pre-signing incremental update described in section
// 4.3: it appends a widget annotation, a rewritten catalog, and a signature
// dictionary carrying fixed-size /ByteRange and /Contents placeholders, then
// reports where those placeholders landed in the serialized output.
//
// Prepare never reflows or rewrites a byte of the original document; every
// new or replaced object is appended after it, with the originals left
// untouched behind them. This is what keeps the incremental update from
// invalidating any signature already on the input.
func Prepare(original []byte, reader *pdf.Reader, opts Options) (*Prepared, error) {
	trailer := reader.Trailer()

	if encrypt := trailer.Key("Encrypt"); !encrypt.IsNull() {
		return nil, newParseError(ParseKindEncrypted, "document has an /Encrypt dictionary", nil)
	}
	if err := requireTableXref(reader); err != nil {
		return nil, err
	}

	root := trailer.Key("Root")
	if root.IsNull() {
		return nil, newParseError(ParseKindGeneric, "trailer has no /Root", nil)
	}
	pages := root.Key("Pages")
	if pages.IsNull() {
		return nil, newParseError(ParseKindGeneric, "catalog has no /Pages", nil)
	}
	if opts.Page == 0 {
		return nil, newParseError(ParseKindPage, "page numbers are 1-indexed", nil)
	}
	page, err := findPageByNumber(pages, opts.Page)
	if err != nil {
		return nil, newParseError(ParseKindPage, "locate signature page", err)
	}

	buf := newMutationContext(original)

	nextID := uint32(reader.XrefInformation.ItemCount)
	var entries []newXrefEntry

	// Override the target page in place so the rest of the document's
	// references to it keep working unchanged.
	pageID := page.GetPtr().GetID()
	entries = append(entries, newXrefEntry{id: pageID, offset: buf.Len()})
	fmt.Fprintf(buf, "%d %d obj\n", pageID, page.GetPtr().GetGen())
	buf.Write(rewritePageWithAnnotation(page, nextID+appearanceSlot(opts)))
	buf.WriteString("endobj\n")

	var appearanceID uint32
	if opts.Visible {
		appearanceID = nextID
		nextID++
		entries = append(entries, newXrefEntry{id: appearanceID, offset: buf.Len()})
		fmt.Fprintf(buf, "%d 0 obj\n", appearanceID)
		buf.Write(buildAppearanceStream(opts.Rect, opts.Name))
		buf.WriteString("endobj\n")
	}

	widgetID := nextID
	nextID++
	widget, err := buildWidgetAnnotation(opts, root, nextID, appearanceID, "Signature1")
	if err != nil {
		return nil, err
	}
	entries = append(entries, newXrefEntry{id: widgetID, offset: buf.Len()})
	fmt.Fprintf(buf, "%d 0 obj\n", widgetID)
	buf.Write(widget)
	buf.WriteString("endobj\n")

	sigID := nextID
	nextID++
	entries = append(entries, newXrefEntry{id: sigID, offset: buf.Len()})
	fmt.Fprintf(buf, "%d 0 obj\n", sigID)
	buf.Write(buildSignatureDict(opts))
	buf.WriteString("endobj\n")

	catalogID := nextID
	nextID++
	entries = append(entries, newXrefEntry{id: catalogID, offset: buf.Len()})
	fmt.Fprintf(buf, "%d 0 obj\n", catalogID)
	buf.Write(buildCatalogObject(root, widgetID))
	buf.WriteString("endobj\n")

	xrefStart := buf.Len()
	writeIncrementalXref(buf, entries)
	writeTrailer(buf, int64(nextID), catalogID, reader.XrefInformation.StartPos, xrefStart)

	docBytes := buf.Bytes()
	openAngle, closeAngle, err := locateContentsWindow(docBytes)
	if err != nil {
		return nil, &SigningError{Msg: "locate Contents placeholder", Err: err}
	}
	br := computeByteRange(len(docBytes), openAngle, closeAngle)
	if err := writeByteRange(docBytes, br); err != nil {
		return nil, &SigningError{Msg: "write ByteRange", Err: err}
	}

	return &Prepared{Bytes: docBytes, ByteRange: br}, nil
}

// appearanceSlot returns the object ID offset the widget will occupy
// relative to the first newly allocated ID, so the page rewrite (emitted
// before the widget's own ID is known) can still reference it correctly.
func appearanceSlot(opts Options) uint32 {
	if opts.Visible {
		return 1
	}
	return 0
}
