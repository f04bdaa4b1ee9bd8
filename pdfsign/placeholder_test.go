package pdfsign

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildSignatureDictContainsFixedWidthPlaceholders(t *testing.T) {
	dict := buildSignatureDict(Options{SigningTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)})

	require.Contains(t, string(dict), byteRangePlaceholder)
	require.Contains(t, string(dict), "/Contents<"+strings.Repeat("0", signatureContainerHexChars)+">")
}

func TestBuildSignatureDictIncludesOptionalFields(t *testing.T) {
	dict := string(buildSignatureDict(Options{Reason: "approval", Name: "Nguyen Van A"}))
	require.Contains(t, dict, "/Reason (approval)")
	require.Contains(t, dict, "/Name (Nguyen Van A)")
}

func TestEncodeCMSIntoPlaceholderPadsToFullWidth(t *testing.T) {
	encoded, err := encodeCMSIntoPlaceholder([]byte{0xAB, 0xCD})
	require.NoError(t, err)
	require.Len(t, encoded, signatureContainerHexChars)
	require.True(t, strings.HasPrefix(encoded, "ABCD"))
	require.True(t, strings.HasSuffix(encoded, "0000"))
}

func TestEncodeCMSIntoPlaceholderAcceptsExactCapacity(t *testing.T) {
	blob := make([]byte, signatureContainerBytes)
	encoded, err := encodeCMSIntoPlaceholder(blob)
	require.NoError(t, err)
	require.Len(t, encoded, signatureContainerHexChars)
}

func TestEncodeCMSIntoPlaceholderRejectsOversizedBlob(t *testing.T) {
	blob := make([]byte, signatureContainerBytes+1)
	_, err := encodeCMSIntoPlaceholder(blob)
	require.ErrorIs(t, err, ErrSignatureTooLarge)
}
