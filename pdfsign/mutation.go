package pdfsign

import "github.com/mattetti/filebuffer"

// mutationContext accumulates the incremental update appended to the
// original document. It wraps filebuffer.Buffer, an in-memory
// io.ReadWriteSeeker, rather than bytes.Buffer, so the same type could
// later grow ReadAt/WriteAt-based random access without a rewrite; for now
// it is only ever appended to, mirroring how the teacher threads a
// *filebuffer.Buffer through sign.SignData as its OutputBuffer.
type mutationContext struct {
	output *filebuffer.Buffer
	offset int64
}

// newMutationContext seeds the buffer with the original document bytes and
// sets offset to the position where the incremental update begins.
func newMutationContext(original []byte) *mutationContext {
	out := filebuffer.New(nil)
	out.Write(original)
	return &mutationContext{output: out, offset: int64(len(original))}
}

// Write implements io.Writer, always appending, so fmt.Fprintf and
// (*bytes.Buffer)-shaped helpers work against it unchanged.
func (m *mutationContext) Write(p []byte) (int, error) {
	n, err := m.output.Write(p)
	m.offset += int64(n)
	return n, err
}

func (m *mutationContext) WriteString(s string) (int, error) {
	return m.Write([]byte(s))
}

// Len reports the current total size of the buffer, including the
// original document and everything appended so far.
func (m *mutationContext) Len() int64 {
	return m.offset
}

func (m *mutationContext) Bytes() []byte {
	return m.output.Bytes()
}
