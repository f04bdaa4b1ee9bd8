package tsa

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// parseResponse extracts the TimeStampToken from a DER-encoded
// TimeStampResp:
//
//	TimeStampResp ::= SEQUENCE {
//	  status          PKIStatusInfo,
//	  timeStampToken  TimeStampToken OPTIONAL }
//
//	PKIStatusInfo ::= SEQUENCE { status INTEGER, ... }
//
// A PKIStatus greater than 1 (granted=0, grantedWithMods=1) means the
// authority refused the request; any higher value is treated as rejection.
func parseResponse(resp []byte) ([]byte, error) {
	s := cryptobyte.String(resp)
	var body cryptobyte.String
	if !s.ReadASN1(&body, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("tsa: response is not a DER SEQUENCE")
	}

	var statusInfo cryptobyte.String
	if !body.ReadASN1(&statusInfo, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("tsa: malformed PKIStatusInfo")
	}

	var status int64
	if !statusInfo.ReadASN1Integer(&status) {
		return nil, fmt.Errorf("tsa: malformed PKIStatus")
	}
	if status > 1 {
		return nil, fmt.Errorf("tsa: authority rejected request with status %d", status)
	}

	if body.Empty() {
		return nil, fmt.Errorf("tsa: response carries no TimeStampToken")
	}

	var token cryptobyte.String
	if !body.ReadASN1Element(&token, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("tsa: malformed TimeStampToken")
	}

	return []byte(token), nil
}
