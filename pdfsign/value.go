package pdfsign

import (
	"fmt"
	"io"

	"github.com/digitorus/pdf"
)

// serializeValue writes a pdf.Value as it would appear inline in a PDF
// object body, following references as "id gen R" rather than inlining
// their target. Grounded on the recursive catalog serializer the teacher
// uses when it copies untouched catalog entries into a rewritten catalog.
func serializeValue(w io.Writer, value pdf.Value) {
	if ptr := value.GetPtr(); ptr.GetID() != 0 {
		_, _ = fmt.Fprintf(w, "%d %d R", ptr.GetID(), ptr.GetGen())
		return
	}

	switch value.Kind() {
	case pdf.Null:
		_, _ = fmt.Fprint(w, "null")
	case pdf.Bool:
		if value.Bool() {
			_, _ = fmt.Fprint(w, "true")
		} else {
			_, _ = fmt.Fprint(w, "false")
		}
	case pdf.Integer:
		_, _ = fmt.Fprintf(w, "%d", value.Int64())
	case pdf.Real:
		_, _ = fmt.Fprintf(w, "%f", value.Float64())
	case pdf.Name:
		_, _ = fmt.Fprintf(w, "/%s", value.Name())
	case pdf.String:
		_, _ = fmt.Fprintf(w, "(%s)", value.RawString())
	case pdf.Dict:
		_, _ = fmt.Fprint(w, "<<")
		for i, key := range value.Keys() {
			if i > 0 {
				_, _ = fmt.Fprint(w, " ")
			}
			_, _ = fmt.Fprintf(w, "/%s ", key)
			serializeValue(w, value.Key(key))
		}
		_, _ = fmt.Fprint(w, ">>")
	case pdf.Array:
		_, _ = fmt.Fprint(w, "[")
		for i := 0; i < value.Len(); i++ {
			if i > 0 {
				_, _ = fmt.Fprint(w, " ")
			}
			serializeValue(w, value.Index(i))
		}
		_, _ = fmt.Fprint(w, "]")
	default:
		// Streams cannot appear as a direct sub-value; nothing we rewrite
		// in SPEC_FULL scope nests one.
	}
}
