package cms

import (
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// algorithmIdentifier appends an AlgorithmIdentifier SEQUENCE { algorithm
// OID, parameters NULL } — every algorithm this profile uses (sha256,
// sha256WithRSAEncryption) takes a NULL parameter.
func algorithmIdentifier(b *cryptobyte.Builder, oid []int) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1NULL()
	})
}

// issuerAndSerial appends the classical CMS SignerIdentifier choice: the
// issuer's raw DER Name followed by the certificate serial as an INTEGER.
func issuerAndSerial(b *cryptobyte.Builder, cert *x509.Certificate) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(cert.RawIssuer)
		b.AddASN1BigInt(cert.SerialNumber)
	})
}

// contextTag builds a context-specific, constructed wrapper around the
// bytes f writes — used for [0] EXPLICIT SignedData and [0] IMPLICIT
// CertificateSet alike; callers choose explicit vs. implicit by what they
// put inside f (a nested SEQUENCE for explicit, the SET's members directly
// for implicit).
func contextTag(b *cryptobyte.Builder, tag uint8, f cryptobyte.BuilderContinuation) {
	b.AddASN1(cryptobyte_asn1.Tag(tag).ContextSpecific().Constructed(), f)
}

func marshalSequence(f cryptobyte.BuilderContinuation) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, f)
	return b.Bytes()
}

func bytesOrErr(b *cryptobyte.Builder) ([]byte, error) {
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("cms: DER encode: %w", err)
	}
	return out, nil
}
