package cms

import (
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// retagImplicit reparses a DER TLV expected to carry expectedTag and
// re-emits its content bytes under newTag, leaving the content itself
// untouched. This is how a real SET (used for hashing, per RFC 5652) turns
// into the implicit [0] SignedAttrs form SignerInfo actually carries.
func retagImplicit(der []byte, expectedTag, newTag cryptobyte_asn1.Tag) ([]byte, error) {
	s := cryptobyte.String(der)
	var content cryptobyte.String
	if !s.ReadASN1(&content, expectedTag) {
		return nil, fmt.Errorf("cms: expected tag %v while retagging", expectedTag)
	}
	var b cryptobyte.Builder
	b.AddASN1(newTag, func(b *cryptobyte.Builder) {
		b.AddBytes(content)
	})
	return bytesOrErr(&b)
}

// buildSignerInfo emits SignerInfo per section 4.2 step 3: version 1,
// issuer-and-serial SignerIdentifier, sha256 DigestAlgorithm, the implicit
// [0] SignedAttrs, sha256WithRSAEncryption SignatureAlgorithm, and the
// signature bytes. signedAttrsSET is the SET-tagged encoding that was
// actually signed (step 2); it is retagged to [0] IMPLICIT here.
// unsignedAttrsImplicit1, if non-nil, is appended verbatim — it already
// carries the [1] IMPLICIT tag (see buildUnsignedAttributesWithTimestamp).
func buildSignerInfo(cert *x509.Certificate, signedAttrsSET, signature, unsignedAttrsImplicit1 []byte) ([]byte, error) {
	signedAttrs0, err := retagImplicit(signedAttrsSET, cryptobyte_asn1.SET, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed())
	if err != nil {
		return nil, fmt.Errorf("cms: retag SignedAttrs: %w", err)
	}

	return marshalSequence(func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1) // version

		issuerAndSerial(b, cert)
		algorithmIdentifier(b, oidSHA256)
		b.AddBytes(signedAttrs0)
		algorithmIdentifier(b, oidSHA256WithRSA)
		b.AddASN1OctetString(signature)

		if unsignedAttrsImplicit1 != nil {
			b.AddBytes(unsignedAttrsImplicit1)
		}
	})
}
