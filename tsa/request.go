package tsa

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var oidSHA256 = []int{2, 16, 840, 1, 101, 3, 4, 2, 1}

// buildRequest assembles a DER-encoded TimeStampReq:
//
//	TimeStampReq ::= SEQUENCE {
//	  version        INTEGER { v1(1) },
//	  messageImprint MessageImprint,
//	  nonce          INTEGER OPTIONAL,
//	  certReq        BOOLEAN DEFAULT FALSE }
//
//	MessageImprint ::= SEQUENCE {
//	  hashAlgorithm AlgorithmIdentifier,
//	  hashedMessage OCTET STRING }
//
// hash must be the SHA-256 digest of the signature bytes being timestamped.
// certReq is always set TRUE so the TSA includes its signing certificate in
// the response, simplifying downstream verification.
func buildRequest(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("tsa: hash must be 32 bytes (sha256), got %d", len(hash))
	}

	nonce, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		return nil, fmt.Errorf("tsa: generate nonce: %w", err)
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1) // version

		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // MessageImprint
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // hashAlgorithm
				b.AddASN1ObjectIdentifier(oidSHA256)
				b.AddASN1NULL()
			})
			b.AddASN1OctetString(hash)
		})

		b.AddASN1BigInt(nonce)
		b.AddASN1Boolean(true) // certReq
	})

	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("tsa: encode TimeStampReq: %w", err)
	}
	return out, nil
}
