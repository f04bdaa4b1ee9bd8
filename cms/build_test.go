package cms

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedRSACert(t *testing.T) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(424242),
		Subject:      pkix.Name{CommonName: "Test Signer", Organization: []string{"Test Org"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return key, cert
}

// mechanismSign mimics the CKM_SHA256_RSA_PKCS mechanism: it hashes data
// with SHA-256 and produces a PKCS#1 v1.5 signature, exactly what the real
// token does internally.
func mechanismSign(key *rsa.PrivateKey) SignFunc {
	return func(data []byte) ([]byte, error) {
		sum := sha256.Sum256(data)
		return rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sum[:])
	}
}

type contentInfo struct {
	Raw         asn1.RawContent
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

type signedDataASN1 struct {
	Version          int
	DigestAlgorithms asn1.RawValue
	ContentInfo      asn1.RawValue
	Certificates     asn1.RawValue `asn1:"implicit,tag:0"`
	SignerInfos       asn1.RawValue `asn1:"set"`
}

func TestBuildRoundTripsThroughEncodingAsn1(t *testing.T) {
	key, cert := selfSignedRSACert(t)
	digest := sha256.Sum256([]byte("document bytes"))

	builder, err := New(digest[:], cert, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), mechanismSign(key))
	require.NoError(t, err)
	require.Len(t, builder.Signature(), 256) // 2048-bit RSA signature

	der, err := builder.Finalize(nil)
	require.NoError(t, err)
	require.NotEmpty(t, der)

	var ci contentInfo
	rest, err := asn1.Unmarshal(der, &ci)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.True(t, ci.ContentType.Equal(oidSignedData))

	var sd signedDataASN1
	_, err = asn1.UnmarshalWithParams(ci.Content.Bytes, &sd, "")
	require.NoError(t, err)
	require.Equal(t, 3, sd.Version)
}

func TestBuildRejectsWrongDigestLength(t *testing.T) {
	_, cert := selfSignedRSACert(t)
	_, err := New([]byte("too short"), cert, time.Now(), func(b []byte) ([]byte, error) { return b, nil })
	require.Error(t, err)
}

func TestFinalizeEmbedsTimestampAttribute(t *testing.T) {
	key, cert := selfSignedRSACert(t)
	digest := sha256.Sum256([]byte("document bytes"))

	builder, err := New(digest[:], cert, time.Now(), mechanismSign(key))
	require.NoError(t, err)

	fakeToken := []byte{0x30, 0x03, 0x02, 0x01, 0x00} // minimal SEQUENCE{INTEGER 0}, stand-in TST

	withTS, err := builder.Finalize(fakeToken)
	require.NoError(t, err)

	withoutTS, err := (&Builder{cert: builder.cert, signedAttrsSET: builder.signedAttrsSET, signature: builder.signature}).Finalize(nil)
	require.NoError(t, err)

	require.Greater(t, len(withTS), len(withoutTS))
}

func TestSignedAttributesAreDeterministicOrder(t *testing.T) {
	digest := sha256.Sum256([]byte("x"))
	a, err := buildSignedAttributes(digest[:], time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	b, err := buildSignedAttributes(digest[:], time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRetagImplicitPreservesContent(t *testing.T) {
	digest := sha256.Sum256([]byte("x"))
	set, err := buildSignedAttributes(digest[:], time.Now())
	require.NoError(t, err)

	retagged, err := retagImplicit(set, 0x31, 0xa0)
	require.NoError(t, err)

	// The SET tag+length header is 2 bytes for this small attribute set;
	// the implicit [0] form uses the identical header length, so the
	// content (everything after the header) must be byte-for-byte equal.
	require.Equal(t, set[0], byte(0x31))
	require.Equal(t, retagged[0], byte(0xa0))
	require.Equal(t, set[1:], retagged[1:])
}
