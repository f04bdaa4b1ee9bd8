package signer

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"log"
	"os"
	"time"

	"github.com/vnca-sign/tokensign/cms"
	"github.com/vnca-sign/tokensign/pdfsign"
	"github.com/vnca-sign/tokensign/tsa"

	"github.com/digitorus/pdf"
)

// Sign runs one signing request end to end: prepare -> digest -> sign ->
// splice -> write, per section 4.4. The order is fixed and each step is
// synchronous; there is no concurrency within a single call.
func Sign(ctx context.Context, req Request) (Result, error) {
	inputPath, err := validatePDFPath(req.InputPath)
	if err != nil {
		return Result{}, err
	}
	outputPath, err := validatePDFPath(req.OutputPath)
	if err != nil {
		return Result{}, err
	}
	if req.Page == 0 {
		return Result{}, newError(InvalidSignaturePage, "page numbers are 1-indexed, 0 is not a valid page", nil)
	}
	if req.Sign == nil {
		return Result{}, newError(TokenReferenceError, "no sign closure bound to a token session", nil)
	}

	input, err := os.ReadFile(inputPath)
	if err != nil {
		return Result{}, newError(InvalidInput, "cannot read input PDF", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return Result{}, mapParseError(err)
	}

	signingTime := req.SigningTime
	if signingTime.IsZero() {
		signingTime = time.Now()
	}
	opts := req.pdfsignOptions()
	opts.SigningTime = signingTime

	prepared, err := pdfsign.Prepare(input, reader, opts)
	if err != nil {
		return Result{}, mapPreparationError(err)
	}

	cert, err := x509.ParseCertificate(req.CertificateDER)
	if err != nil {
		return Result{}, newError(CertificateNotFound, "parse signer certificate", err)
	}

	digest := pdfsign.DocumentDigest(prepared.Bytes, prepared.ByteRange)

	builder, err := cms.New(digest[:], cert, signingTime, cms.SignFunc(req.Sign))
	if err != nil {
		return Result{}, newError(SigningFailed, "build CMS signed attributes", err)
	}

	result := Result{SigningTime: signingTime, ByteRange: prepared.ByteRange}

	var timestampToken []byte
	if req.TSA != nil {
		result.TSARequested = true
		token, warning, tsaErr := req.TSA.GetTimestamp(ctx, builder.Signature())
		switch {
		case tsaErr == nil:
			timestampToken = token
			result.TSAApplied = true
			result.TSAWarning = warning
		case errors.Is(tsaErr, tsa.ErrUnavailable):
			log.Println("timestamp authority unreachable, proceeding with BES-level signature")
			result.TSAWarning = "unreachable"
		default:
			log.Println("timestamp request failed:", tsaErr)
			result.TSAWarning = tsaErr.Error()
		}
	}

	cmsBlob, err := builder.Finalize(timestampToken)
	if err != nil {
		return Result{}, newError(SigningFailed, "finalize CMS", err)
	}

	if err := pdfsign.Finalize(prepared, cmsBlob); err != nil {
		if errors.Is(err, pdfsign.ErrSignatureTooLarge) {
			return Result{}, newError(SigningFailed, "signature exceeds container capacity", err)
		}
		return Result{}, newError(SigningFailed, "splice signature into document", err)
	}

	if err := os.WriteFile(outputPath, prepared.Bytes, 0o644); err != nil {
		return Result{}, newError(SigningFailed, "write output PDF", err)
	}

	return result, nil
}

// mapParseError classifies a failure from pdf.NewReader itself, which
// returns plain errors rather than *pdfsign.ParseError. Anything that
// fails before Prepare even starts is a malformed-input problem.
func mapParseError(err error) *Error {
	return newError(InvalidInput, "parse input PDF", err)
}

// mapPreparationError classifies a *pdfsign.ParseError surfaced by Prepare.
// The page-number and encryption subkinds get their own Code; every other
// parse failure (xref, stream, decompress, object-stream, generic) is a
// malformed or unsupported input document.
func mapPreparationError(err error) *Error {
	var parseErr *pdfsign.ParseError
	if errors.As(err, &parseErr) {
		switch parseErr.Kind {
		case pdfsign.ParseKindPage:
			return newError(InvalidSignaturePage, parseErr.Msg, parseErr.Err)
		default:
			return newError(InvalidInput, parseErr.Error(), nil)
		}
	}
	return newError(SigningFailed, "prepare document", err)
}
