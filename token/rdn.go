package token

import (
	"encoding/asn1"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// ASN.1 string tags relevant to RDN attribute values. encoding/asn1 already
// understands PrintableString/UTF8String/IA5String/T61String when decoding
// into a Go string, but it has no notion of BMPString (tag 30, UTF-16BE) —
// exactly the encoding Vietnamese CAs use for CN/O/OU values containing
// diacritics. We therefore walk the raw DER ourselves.
const (
	tagUTF8String      = 12
	tagPrintableString = 19
	tagBMPString       = 30
)

// oidName maps the handful of RDN attribute OIDs this driver cares about to
// their short names, matching the set the original desktop core formats
// (src-tauri/src/pkcs11/helpers.rs format_dn_utf8).
var oidName = map[string]string{
	"2.5.4.3":  "CN",
	"2.5.4.6":  "C",
	"2.5.4.7":  "L",
	"2.5.4.8":  "ST",
	"2.5.4.10": "O",
	"2.5.4.11": "OU",
}

type rawAttributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue
}

// formatRawName decodes a raw DER-encoded X.501 Name (the RawSubject or
// RawIssuer of an x509.Certificate) into a comma-separated "CN=..., O=..."
// string, decoding UTF8String, PrintableString, and BMPString attribute
// values correctly.
func formatRawName(raw []byte) (string, error) {
	var rdnSequence []asn1.RawValue
	if _, err := asn1.Unmarshal(raw, &rdnSequence); err != nil {
		return "", fmt.Errorf("parse Name sequence: %w", err)
	}

	var parts []string
	for _, rdnRaw := range rdnSequence {
		var attrs []rawAttributeTypeAndValue
		if _, err := asn1.UnmarshalWithParams(rdnRaw.FullBytes, &attrs, "set"); err != nil {
			return "", fmt.Errorf("parse RDN set: %w", err)
		}
		for _, attr := range attrs {
			label := attr.Type.String()
			if short, ok := oidName[label]; ok {
				label = short
			}
			value, err := decodeDirectoryString(attr.Value)
			if err != nil {
				return "", fmt.Errorf("decode %s value: %w", label, err)
			}
			parts = append(parts, label+"="+value)
		}
	}
	return strings.Join(parts, ", "), nil
}

// decodeDirectoryString decodes a DirectoryString ANY value according to
// its tag: UTF8String and PrintableString are already UTF-8/ASCII, and
// BMPString is UTF-16BE and must be transcoded.
func decodeDirectoryString(v asn1.RawValue) (string, error) {
	switch v.Tag {
	case tagUTF8String, tagPrintableString:
		return string(v.Bytes), nil
	case tagBMPString:
		decoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		decoded, err := decoder.Bytes(v.Bytes)
		if err != nil {
			return "", fmt.Errorf("decode BMPString: %w", err)
		}
		return string(decoded), nil
	default:
		// Fall back to raw bytes for less common directory string types
		// (TeletexString, UniversalString, ...); better to surface
		// something than to fail certificate_info entirely.
		return string(v.Bytes), nil
	}
}
