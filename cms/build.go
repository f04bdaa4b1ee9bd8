// Package cms implements a hand-rolled DER encoder for the narrow detached
// PKCS#7/CMS SignedData profile required by PAdES-BES. It deliberately does
// not depend on a general-purpose CMS/PKCS7 library: the profile is narrow
// enough to assemble directly from SEQUENCE/SET/OID/OCTET STRING/INTEGER/
// UTCTime/context-tag primitives, and the timestamp-insertion step requires
// rebuilding enclosing length headers in a way off-the-shelf encoders don't
// expose.
package cms

import (
	"crypto/x509"
	"fmt"
	"time"
)

// SignFunc signs exactly the bytes it is given and returns the raw
// signature; it hashes internally (sha256WithRSAEncryption) and must not be
// handed pre-hashed input. It is satisfied by (*token.Manager).Sign.
type SignFunc func(data []byte) ([]byte, error)

// Builder holds the state between signing the SignedAttributes and
// finalizing SignedData, so a caller can obtain an RFC 3161 timestamp over
// the produced signature before any length header is committed to bytes —
// see section 4.2's note that post-hoc timestamp insertion would otherwise
// require patching every enclosing length.
type Builder struct {
	cert           *x509.Certificate
	signedAttrsSET []byte
	signature      []byte
}

// New builds and signs the SignedAttributes (content-type, message-digest,
// signing-time) over digest, which must be the 32-byte SHA-256 document
// digest. sign is invoked once, over the exact DER bytes of the
// SignedAttributes SET.
func New(digest []byte, cert *x509.Certificate, signingTime time.Time, sign SignFunc) (*Builder, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("cms: document digest must be 32 bytes (sha256), got %d", len(digest))
	}

	signedAttrsSET, err := buildSignedAttributes(digest, signingTime)
	if err != nil {
		return nil, fmt.Errorf("cms: build SignedAttributes: %w", err)
	}

	signature, err := sign(signedAttrsSET)
	if err != nil {
		return nil, fmt.Errorf("cms: sign SignedAttributes: %w", err)
	}

	return &Builder{cert: cert, signedAttrsSET: signedAttrsSET, signature: signature}, nil
}

// Signature returns the raw RSA signature over the SignedAttributes, the
// bytes an RFC 3161 timestamp authority should be asked to timestamp.
func (b *Builder) Signature() []byte {
	return b.signature
}

// Finalize assembles SignerInfo, SignedData, and the enclosing ContentInfo
// into the final detached CMS blob. If timestampToken is non-nil, it is
// embedded as an unsigned signature-timestamp attribute (section 4.2's
// optional timestamp integration); pass nil when no TSA was reachable.
func (b *Builder) Finalize(timestampToken []byte) ([]byte, error) {
	var unsignedAttrs []byte
	if len(timestampToken) > 0 {
		var err error
		unsignedAttrs, err = buildUnsignedAttributesWithTimestamp(timestampToken)
		if err != nil {
			return nil, fmt.Errorf("cms: build UnsignedAttributes: %w", err)
		}
	}

	signerInfo, err := buildSignerInfo(b.cert, b.signedAttrsSET, b.signature, unsignedAttrs)
	if err != nil {
		return nil, fmt.Errorf("cms: build SignerInfo: %w", err)
	}

	signedData, err := buildSignedData(b.cert, signerInfo)
	if err != nil {
		return nil, fmt.Errorf("cms: build SignedData: %w", err)
	}

	contentInfo, err := buildContentInfo(signedData)
	if err != nil {
		return nil, fmt.Errorf("cms: build ContentInfo: %w", err)
	}

	return contentInfo, nil
}
