package pdfsign

// Finalize hex-encodes cmsBlob and splices it into prepared's Contents
// window in place, completing the incremental update. Prepared.Bytes is
// mutated directly; prepared.ByteRange already points at the window
// (ByteRange[1] is its opening '<', ByteRange[2] is one past its closing
// '>'), computed once by Prepare and never touched again.
func Finalize(prepared *Prepared, cmsBlob []byte) error {
	hexEncoded, err := encodeCMSIntoPlaceholder(cmsBlob)
	if err != nil {
		return &SigningError{Msg: "encode CMS into placeholder", Err: err}
	}
	if err := spliceContents(prepared.Bytes, prepared.ByteRange[1], prepared.ByteRange[2], hexEncoded); err != nil {
		return &SigningError{Msg: "splice CMS into Contents window", Err: err}
	}
	return nil
}
