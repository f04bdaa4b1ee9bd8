package signer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeStringCoversNamedValues(t *testing.T) {
	cases := map[Code]string{
		Success:                  "Success",
		InvalidInput:             "InvalidInput",
		CertificateNotFound:      "CertificateNotFound",
		SigningFailed:            "SigningFailed",
		PrivateKeyNotFound:       "PrivateKeyNotFound",
		PageParameterMissing:     "PageParameterMissing",
		InvalidSignaturePage:     "InvalidSignaturePage",
		TokenNotFound:            "TokenNotFound",
		TokenReferenceError:      "TokenReferenceError",
		InvalidExistingSignature: "InvalidExistingSignature",
		UserCancelled:            "UserCancelled",
	}
	for code, want := range cases {
		require.Equal(t, want, code.String())
	}
	require.Equal(t, "UnknownError", Code(999).String())
}

func TestErrorWrapsUnderlyingCause(t *testing.T) {
	cause := errors.New("pkcs11 returned CKR_DEVICE_ERROR")
	err := newError(SigningFailed, "token sign call failed", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "SigningFailed")
	require.Contains(t, err.Error(), "token sign call failed")
}

func TestCertValidationCodeTaxonomyMatchesExternalContract(t *testing.T) {
	require.Equal(t, CertValidationCode(0), Valid)
	require.Equal(t, CertValidationCode(2), Expired)
	require.Equal(t, CertValidationCode(3), NotYetValid)
	require.Equal(t, CertValidationCode(4), Revoked)
	require.Equal(t, CertValidationCode(10), OCSPUrlNotFound)
}
