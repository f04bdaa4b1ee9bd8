package pdfsign

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// signatureContainerBytes is the fixed capacity of the CMS placeholder
// window: 65,536 raw bytes, hex-encoded into 131,072 ASCII characters.
const signatureContainerBytes = 65536
const signatureContainerHexChars = signatureContainerBytes * 2

// byteRangePlaceholder reserves a fixed-width ASCII fragment for the four
// ByteRange integers so it can be overwritten in place once the real values
// are known, without changing the length of any byte before it.
const byteRangePlaceholder = "/ByteRange[0 ********** ********** **********]"

// buildSignatureDict renders the signature dictionary object body: Type,
// Filter, SubFilter, the ByteRange and Contents placeholders, signing time,
// and optional Reason/Name, per section 4.3 step 3.
func buildSignatureDict(opts Options) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<\n")
	buf.WriteString("  /Type /Sig\n")
	buf.WriteString("  /Filter /Adobe.PPKLite\n")
	buf.WriteString("  /SubFilter /adbe.pkcs7.detached\n")
	buf.WriteString("  " + byteRangePlaceholder + "\n")
	buf.WriteString("  /Contents<")
	buf.Write(bytes.Repeat([]byte("0"), signatureContainerHexChars))
	buf.WriteString(">\n")

	signingTime := opts.SigningTime
	if signingTime.IsZero() {
		signingTime = time.Now()
	}
	buf.WriteString("  /M " + pdfDateTime(signingTime) + "\n")

	if opts.Reason != "" {
		buf.WriteString("  /Reason " + pdfString(opts.Reason) + "\n")
	}
	if opts.Name != "" {
		buf.WriteString("  /Name " + pdfString(opts.Name) + "\n")
	}

	buf.WriteString(">>\n")
	return buf.Bytes()
}

// encodeCMSIntoPlaceholder hex-encodes cmsBlob in upper case and right-pads
// it with ASCII '0' to exactly the container width, per section 4.4 step 7.
// It rejects input that would not fit the fixed window.
func encodeCMSIntoPlaceholder(cmsBlob []byte) (string, error) {
	if len(cmsBlob) > signatureContainerBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d-byte container", ErrSignatureTooLarge, len(cmsBlob), signatureContainerBytes)
	}
	hexEncoded := fmt.Sprintf("%X", cmsBlob)
	if len(hexEncoded) > signatureContainerHexChars {
		return "", fmt.Errorf("%w: encoded length %d exceeds %d hex characters", ErrSignatureTooLarge, len(hexEncoded), signatureContainerHexChars)
	}
	return hexEncoded + strings.Repeat("0", signatureContainerHexChars-len(hexEncoded)), nil
}
