package cms

import (
	"crypto/x509"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// buildSignedData emits SignedData per section 4.2 step 4: version 3, a
// one-member DigestAlgorithms SET, a detached EncapsulatedContentInfo
// (id-data, no eContent), a [0] IMPLICIT CertificateSet holding only the
// end-entity certificate, and a one-member SignerInfos SET.
func buildSignedData(cert *x509.Certificate, signerInfo []byte) ([]byte, error) {
	return marshalSequence(func(b *cryptobyte.Builder) {
		b.AddASN1Int64(3) // version

		b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
			algorithmIdentifier(b, oidSHA256)
		})

		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // EncapsulatedContentInfo
			b.AddASN1ObjectIdentifier(oidData)
			// no [0] EXPLICIT content: the signature is detached.
		})

		contextTag(b, 0, func(b *cryptobyte.Builder) { // CertificateSet
			b.AddBytes(cert.Raw)
		})

		b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) { // SignerInfos
			b.AddBytes(signerInfo)
		})
	})
}

// buildContentInfo wraps signedData in ContentInfo { contentType
// signedData, [0] EXPLICIT content }.
func buildContentInfo(signedData []byte) ([]byte, error) {
	return marshalSequence(func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oidSignedData)
		contextTag(b, 0, func(b *cryptobyte.Builder) {
			b.AddBytes(signedData)
		})
	})
}
