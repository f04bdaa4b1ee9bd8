package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func issueTestCert(t *testing.T, cn string, parent *x509.Certificate, parentKey *ecdsa.PrivateKey, isCA bool) (*x509.Certificate, *ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}

	signer := parent
	signerKey := parentKey
	if signer == nil {
		signer = template
		signerKey = key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signer, key.Public(), signerKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key, der
}

func TestBuildChainOrdersFromEndEntityToRoot(t *testing.T) {
	root, rootKey, rootDER := issueTestCert(t, "Root CA", nil, nil, true)
	inter, interKey, interDER := issueTestCert(t, "Intermediate CA", root, rootKey, true)
	leaf, _, leafDER := issueTestCert(t, "Signer", inter, interKey, false)
	_ = leaf

	certs := []certObject{
		{der: interDER, id: nil},
		{der: rootDER, id: nil},
		{der: leafDER, id: []byte{0x01}},
	}

	endEntity, chain, err := buildChain(certs, 0, nil, []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, leafDER, endEntity)
	require.Len(t, chain, 3)
	require.Equal(t, leafDER, chain[0])
	require.Equal(t, interDER, chain[1])
	require.Equal(t, rootDER, chain[2])
}

func TestBuildChainFallsBackToFirstCertWithoutMatchingID(t *testing.T) {
	leaf, _, leafDER := issueTestCert(t, "Signer", nil, nil, false)
	_ = leaf

	certs := []certObject{{der: leafDER, id: nil}}

	endEntity, chain, err := buildChain(certs, 0, nil, nil)
	require.NoError(t, err)
	require.Equal(t, leafDER, endEntity)
	require.Len(t, chain, 1)
}

func TestBuildChainStopsAtMissingIssuer(t *testing.T) {
	root, rootKey, _ := issueTestCert(t, "Root CA", nil, nil, true)
	inter, interKey, interDER := issueTestCert(t, "Intermediate CA", root, rootKey, true)
	leaf, _, leafDER := issueTestCert(t, "Signer", inter, interKey, false)
	_ = leaf

	// Root is intentionally omitted: the chain should still resolve the
	// intermediate and then stop gracefully instead of failing.
	certs := []certObject{
		{der: leafDER, id: []byte{0x01}},
		{der: interDER, id: nil},
	}

	endEntity, chain, err := buildChain(certs, 0, nil, []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, leafDER, endEntity)
	require.Len(t, chain, 2)
}

func TestParseArchMismatchExtractsBothArchitectures(t *testing.T) {
	msg := `dlopen(/usr/lib/vnpt-ca/libcryptoki.so, 0x0002): tried: '/usr/lib/vnpt-ca/libcryptoki.so' (mach-o file, but is an incompatible architecture (have 'x86_64', need 'arm64e' or 'arm64'))`

	lib, host, ok := parseArchMismatch(msg)
	require.True(t, ok)
	require.Equal(t, "x86_64", lib)
	require.Equal(t, "arm64e", host)
}

func TestParseArchMismatchNoMatch(t *testing.T) {
	_, _, ok := parseArchMismatch("some unrelated error")
	require.False(t, ok)
}

func TestArchMismatchErrorGuidanceForAppleSilicon(t *testing.T) {
	err := archMismatchError("/usr/lib/vnpt-ca/libcryptoki.so", "x86_64", "arm64")
	require.Equal(t, KindArchitectureMismatch, err.Kind)
	require.Contains(t, err.Guidance, "Rosetta")
}
