package cms

import (
	"time"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// attribute appends a CMS Attribute SEQUENCE { type OID, values SET OF ANY }
// where the value set contains exactly one member, built by f.
func attribute(b *cryptobyte.Builder, oid []int, f cryptobyte.BuilderContinuation) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1(cryptobyte_asn1.SET, f)
	})
}

// buildSignedAttributes emits the SignedAttributes SET OF Attribute: the
// minimal set this profile requires — content-type, message-digest, and
// signing-time — encoded with the real SET tag. signerInfo re-emits these
// same bytes under an implicit [0] tag, per section 4.2 step 3.
func buildSignedAttributes(messageDigest []byte, signingTime time.Time) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
		attribute(b, oidContentType, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidData)
		})
		attribute(b, oidMessageDigest, func(b *cryptobyte.Builder) {
			b.AddASN1OctetString(messageDigest)
		})
		attribute(b, oidSigningTime, func(b *cryptobyte.Builder) {
			b.AddASN1UTCTime(signingTime.UTC())
		})
	})
	return bytesOrErr(&b)
}

// buildUnsignedAttributesWithTimestamp emits the UnsignedAttributes [1]
// IMPLICIT SET containing the single id-aa-signatureTimeStampToken
// attribute whose value wraps the raw DER timestamp token, per section 4.2's
// optional timestamp integration.
func buildUnsignedAttributesWithTimestamp(timestampToken []byte) ([]byte, error) {
	var b cryptobyte.Builder
	contextTag(&b, 1, func(b *cryptobyte.Builder) {
		attribute(b, oidSignatureTimeStamp, func(b *cryptobyte.Builder) {
			b.AddBytes(timestampToken)
		})
	})
	return bytesOrErr(&b)
}
