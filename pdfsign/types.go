// Package pdfsign mutates a PDF document to embed a PAdES-BES signature
// field: adding an AcroForm and widget annotation if needed, reserving a
// fixed-size CMS placeholder window, and splicing the final signature in
// via an incremental update that never reflows existing bytes.
package pdfsign

import "time"

// Options parameterizes one signing pass over a document.
type Options struct {
	// Visible controls whether the signature widget renders an appearance
	// stream. Page and Rect are ignored when false.
	Visible bool
	Page    uint32
	Rect    [4]float64

	Reason string
	Name   string

	// SigningTime is embedded as the signature dictionary's /M entry and
	// as the CMS signing-time attribute. Zero means time.Now().
	SigningTime time.Time
}

// Prepared is the output of Prepare: the fully serialized document with
// placeholders in place, and the real /ByteRange values already written
// into the document, ready for DocumentDigest and the final splice.
type Prepared struct {
	Bytes []byte

	// ByteRange holds the four /ByteRange integers describing the span
	// around the hex Contents window: ByteRange[1] is the offset of the
	// opening '<', ByteRange[2] is one past the closing '>'.
	ByteRange [4]int64
}
