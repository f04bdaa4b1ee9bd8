package signer

import (
	"time"

	"github.com/vnca-sign/tokensign/pdfsign"
	"github.com/vnca-sign/tokensign/tsa"
)

// SignCloser binds a digest to a running token session. The Token Manager's
// Sign method satisfies it directly.
type SignCloser func(digest []byte) ([]byte, error)

// Request carries every input to a single signing call.
type Request struct {
	InputPath  string
	OutputPath string

	Visible bool
	Page    uint32
	Rect    [4]float64
	Reason  string
	Name    string

	// CertificateDER is the signer's end-entity certificate, as returned
	// by the Token Driver after login.
	CertificateDER []byte

	// Sign performs the raw CKM_SHA256_RSA_PKCS signature over the bytes
	// it is given; it is a closure over a logged-in Token Manager.
	Sign SignCloser

	// TSA is optional; when nil, no timestamp is requested.
	TSA *tsa.Client

	SigningTime time.Time
}

// Result is returned on success.
type Result struct {
	SigningTime  time.Time
	TSAWarning   string
	TSARequested bool
	TSAApplied   bool
	ByteRange    [4]int64
}

func (r Request) pdfsignOptions() pdfsign.Options {
	return pdfsign.Options{
		Visible:     r.Visible,
		Page:        r.Page,
		Rect:        r.Rect,
		Reason:      r.Reason,
		Name:        r.Name,
		SigningTime: r.SigningTime,
	}
}
