package pdfsign

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/digitorus/pdf"
)

// buildCatalogObject rewrites the document catalog under its own object
// number, adding or replacing /AcroForm with a single-field form pointing
// at widgetID, and preserving every other existing entry verbatim.
// Grounded on the teacher's createCatalog.
func buildCatalogObject(root pdf.Value, widgetID uint32) []byte {
	const acroFormKey = "AcroForm"

	var buf bytes.Buffer
	buf.WriteString("<<\n")
	buf.WriteString("  /Type /Catalog\n")

	overridden := []string{"Type", acroFormKey}
	for _, key := range root.Keys() {
		if key == "Type" {
			continue
		}
		if key == acroFormKey {
			continue
		}
		if key == "Pages" || key == "Names" {
			fmt.Fprintf(&buf, "  /%s ", key)
			serializeValue(&buf, root.Key(key))
			buf.WriteString("\n")
			overridden = append(overridden, key)
		}
	}

	existingFields := existingAcroFormFields(root.Key(acroFormKey))
	buf.WriteString("  /AcroForm <<\n")
	buf.WriteString("    /Fields [")
	for i, ref := range existingFields {
		if i > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(ref)
	}
	if len(existingFields) > 0 {
		buf.WriteString(" ")
	}
	fmt.Fprintf(&buf, "%d 0 R]\n", widgetID)
	buf.WriteString("    /SigFlags 3\n")
	buf.WriteString("  >>\n")

	for _, key := range root.Keys() {
		if slices.Contains(overridden, key) {
			continue
		}
		fmt.Fprintf(&buf, "  /%s ", key)
		serializeValue(&buf, root.Key(key))
		buf.WriteString("\n")
	}

	buf.WriteString(">>\n")
	return buf.Bytes()
}

// existingAcroFormFields renders the object references already present in
// an AcroForm's /Fields array, if any, so a second signature field can be
// added onto a document that already has one.
func existingAcroFormFields(acroForm pdf.Value) []string {
	if acroForm.IsNull() {
		return nil
	}
	fields := acroForm.Key("Fields")
	if fields.IsNull() {
		return nil
	}
	out := make([]string, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		ptr := fields.Index(i).GetPtr()
		out = append(out, fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen()))
	}
	return out
}
