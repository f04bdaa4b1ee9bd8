package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatRawNamePrintableAndUTF8(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Nguyễn Văn A",
			Organization: []string{"VNPT-CA"},
			Country:      []string{"VN"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	name, err := formatRawName(cert.RawSubject)
	require.NoError(t, err)
	require.Contains(t, name, "CN=Nguyễn Văn A")
	require.Contains(t, name, "O=VNPT-CA")
	require.Contains(t, name, "C=VN")
}

// buildBMPAttr hand-assembles the DER bytes for a single-RDN Name whose
// CommonName attribute value is a BMPString — the encoding Go's
// crypto/x509/pkix.Name cannot produce, since it always chooses
// PrintableString or UTF8String.
func buildBMPName(t *testing.T, utf16be []byte) []byte {
	t.Helper()

	// AttributeValue: BMPString (universal, primitive, tag 30 == 0x1e)
	value := append([]byte{0x1e, byte(len(utf16be))}, utf16be...)

	// AttributeType: OID 2.5.4.3 (commonName) == 0x55 0x04 0x03
	oid := []byte{0x06, 0x03, 0x55, 0x04, 0x03}

	atv := append(append([]byte{}, oid...), value...)
	atvSeq := append([]byte{0x30, byte(len(atv))}, atv...)

	rdnSet := append([]byte{0x31, byte(len(atvSeq))}, atvSeq...)

	name := append([]byte{0x30, byte(len(rdnSet))}, rdnSet...)
	return name
}

func TestFormatRawNameBMPString(t *testing.T) {
	// UTF-16BE for "AB"
	utf16be := []byte{0x00, 0x41, 0x00, 0x42}
	raw := buildBMPName(t, utf16be)

	name, err := formatRawName(raw)
	require.NoError(t, err)
	require.Equal(t, "CN=AB", name)
}

func TestDecodeDirectoryStringUnknownTagFallsBack(t *testing.T) {
	v := asn1.RawValue{Tag: 22, Bytes: []byte("IA5")}
	s, err := decodeDirectoryString(v)
	require.NoError(t, err)
	require.Equal(t, "IA5", s)
}
