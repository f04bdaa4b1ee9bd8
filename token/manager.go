// Package token implements the hardware token lifecycle manager: loading a
// vendor PKCS#11 shared library, authenticating a session, locating the
// signing key and certificate chain, and performing RSA signing operations
// on behalf of the CMS builder.
package token

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/miekg/pkcs11"
)

const reinitQuiescence = 200 * time.Millisecond

const maxChainHops = 10

// Manager owns a loaded PKCS#11 provider and, once logged in, the single
// authenticated session drawn from it. All mutable fields are guarded by
// one mutex so the driver is safe to share between a control goroutine and
// a worker goroutine, per spec section 5.
type Manager struct {
	mu sync.Mutex

	ctx         *pkcs11.Ctx
	libraryPath string
	closed      bool

	session    *pkcs11.SessionHandle
	keyHandle  *pkcs11.ObjectHandle
	endEntity  []byte   // DER
	chain      [][]byte // DER, end-entity first
	slotID     uint
}

// New loads the PKCS#11 shared library at libraryPath, validating the path
// against the hardcoded per-OS allow-list first, and initializes it for
// multi-threaded use.
func New(libraryPath string) (*Manager, error) {
	if err := validateLibraryPath(libraryPath); err != nil {
		return nil, err
	}

	ctx := pkcs11.New(libraryPath)
	if ctx == nil {
		return nil, newError(KindInitializationFailed, fmt.Sprintf("failed to load PKCS#11 library %q", libraryPath), nil)
	}

	if err := ctx.Initialize(); err != nil {
		if libArch, hostArch, ok := parseArchMismatch(err.Error()); ok {
			return nil, archMismatchError(libraryPath, libArch, hostArch)
		}
		return nil, newError(KindInitializationFailed, "C_Initialize failed", err)
	}

	return &Manager{ctx: ctx, libraryPath: libraryPath}, nil
}

// Reinit drops m's provider context, waits for the vendor finalizer to
// quiesce, and loads newPath in its place. Re-initializing with the same
// path the manager already has loaded is a no-op. The returned Manager
// replaces m; the caller should stop using m after this call.
func Reinit(m *Manager, newPath string) (*Manager, error) {
	if m != nil && m.libraryPath == newPath && !m.isClosed() {
		return m, nil
	}
	if m != nil {
		_ = m.Close()
		time.Sleep(reinitQuiescence)
	}
	return New(newPath)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ListSlots enumerates slots with a present token. If every slot fails
// introspection, a single aggregate error is returned; otherwise the
// successful subset is returned.
func (m *Manager) ListSlots() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	slots, err := m.ctx.GetSlotList(true)
	if err != nil {
		return nil, newError(KindTokenNotFound, "failed to enumerate slots", err)
	}
	if len(slots) == 0 {
		return nil, nil
	}

	var infos []Info
	var failures []string
	for _, slot := range slots {
		ti, err := m.ctx.GetTokenInfo(slot)
		if err != nil {
			failures = append(failures, fmt.Sprintf("slot %d: %v", slot, err))
			continue
		}
		infos = append(infos, Info{
			SlotID:       slot,
			Label:        strings.TrimSpace(ti.Label),
			Manufacturer: strings.TrimSpace(ti.ManufacturerID),
			Model:        strings.TrimSpace(ti.Model),
			SerialNumber: strings.TrimSpace(ti.SerialNumber),
		})
	}

	if len(infos) == 0 && len(failures) > 0 {
		return nil, newError(KindTokenNotFound, fmt.Sprintf("found %d slot(s) with a token but failed to read all of them:\n%s", len(slots), strings.Join(failures, "\n")), nil)
	}
	return infos, nil
}

// Login opens a read-write session on slotID, authenticates as the User
// role with pin, and locates the signing key and certificate chain. pin is
// held in a local byte buffer that is zeroed on every exit path. On
// failure, m's prior state (if any) is left untouched.
func (m *Manager) Login(slotID uint, pin string) error {
	pinBuf := []byte(pin)
	defer zero(pinBuf)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	session, err := m.ctx.OpenSession(slotID, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		return newError(KindTokenNotFound, fmt.Sprintf("failed to open session on slot %d", slotID), err)
	}

	// string(pinBuf) allocates an immutable Go string the runtime may retain
	// in memory beyond this call; miekg/pkcs11's Login signature leaves no
	// seam around that. pinBuf itself, the one buffer we control, is zeroed
	// on every exit path.
	loginErr := m.ctx.Login(session, pkcs11.CKU_USER, string(pinBuf))
	zero(pinBuf)
	if loginErr != nil {
		_ = m.ctx.CloseSession(session)
		return newError(KindSigningFailed, "PIN authentication failed", loginErr)
	}

	keyHandle, keyID, err := m.findSigningKey(session)
	if err != nil {
		_ = m.ctx.Logout(session)
		_ = m.ctx.CloseSession(session)
		return err
	}

	certs, err := m.findCertificates(session)
	if err != nil {
		_ = m.ctx.Logout(session)
		_ = m.ctx.CloseSession(session)
		return err
	}

	endEntity, chain, err := buildChain(certs, session, m.ctx, keyID)
	if err != nil {
		_ = m.ctx.Logout(session)
		_ = m.ctx.CloseSession(session)
		return err
	}

	m.session = &session
	m.keyHandle = &keyHandle
	m.endEntity = endEntity
	m.chain = chain
	m.slotID = slotID
	return nil
}

// findSigningKey locates the one private-key object with Sign capability
// and returns its handle along with its CKA_ID (which may be empty if the
// token doesn't set one).
func (m *Manager) findSigningKey(session pkcs11.SessionHandle) (pkcs11.ObjectHandle, []byte, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_SIGN, true),
	}
	if err := m.ctx.FindObjectsInit(session, template); err != nil {
		return 0, nil, newError(KindKeyNotAvailable, "failed to search for signing key", err)
	}
	defer func() { _ = m.ctx.FindObjectsFinal(session) }()

	objs, _, err := m.ctx.FindObjects(session, 1)
	if err != nil {
		return 0, nil, newError(KindKeyNotAvailable, "failed to search for signing key", err)
	}
	if len(objs) == 0 {
		return 0, nil, newError(KindKeyNotAvailable, "no signing private key found on token", nil)
	}

	keyID, _ := m.readAttribute(session, objs[0], pkcs11.CKA_ID)
	return objs[0], keyID, nil
}

// findCertificates returns the DER bytes of every certificate object on the
// token, alongside the CKA_ID of each, in enumeration order.
func (m *Manager) findCertificates(session pkcs11.SessionHandle) ([]certObject, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_CERTIFICATE),
	}
	if err := m.ctx.FindObjectsInit(session, template); err != nil {
		return nil, newError(KindCertificateNotAvailable, "failed to search for certificates", err)
	}
	defer func() { _ = m.ctx.FindObjectsFinal(session) }()

	objs, _, err := m.ctx.FindObjects(session, 32)
	if err != nil {
		return nil, newError(KindCertificateNotAvailable, "failed to search for certificates", err)
	}
	if len(objs) == 0 {
		return nil, newError(KindCertificateNotAvailable, "no certificate found on token", nil)
	}

	var certs []certObject
	for _, obj := range objs {
		der, err := m.readAttribute(session, obj, pkcs11.CKA_VALUE)
		if err != nil || len(der) == 0 {
			continue
		}
		id, _ := m.readAttribute(session, obj, pkcs11.CKA_ID)
		certs = append(certs, certObject{der: der, id: id})
	}
	if len(certs) == 0 {
		return nil, newError(KindCertificateNotAvailable, "no readable certificate value found on token", nil)
	}
	return certs, nil
}

type certObject struct {
	der []byte
	id  []byte
}

func (m *Manager) readAttribute(session pkcs11.SessionHandle, obj pkcs11.ObjectHandle, attrType uint) ([]byte, error) {
	attrs, err := m.ctx.GetAttributeValue(session, obj, []*pkcs11.Attribute{pkcs11.NewAttribute(attrType, nil)})
	if err != nil || len(attrs) == 0 {
		return nil, err
	}
	return attrs[0].Value, nil
}

// buildChain picks the end-entity certificate and orders the chain behind
// it. The end-entity is identified by matching the signing key's CKA_ID
// against each certificate's CKA_ID (spec section 9's identified gap);
// when no certificate's CKA_ID matches (some tokens leave certificate
// CKA_ID empty), the first certificate object returned by the token is
// used, matching the pre-existing best-effort behavior.
func buildChain(certs []certObject, _ pkcs11.SessionHandle, _ *pkcs11.Ctx, keyID []byte) ([]byte, [][]byte, error) {
	leadIndex := 0
	if len(keyID) > 0 {
		for i, c := range certs {
			if len(c.id) > 0 && string(c.id) == string(keyID) {
				leadIndex = i
				break
			}
		}
	}

	remaining := make([]*x509.Certificate, 0, len(certs))
	remainingDER := make([][]byte, 0, len(certs))
	var endEntity *x509.Certificate
	var endEntityDER []byte

	for i, c := range certs {
		parsed, err := x509.ParseCertificate(c.der)
		if err != nil {
			continue
		}
		if i == leadIndex {
			endEntity = parsed
			endEntityDER = c.der
			continue
		}
		remaining = append(remaining, parsed)
		remainingDER = append(remainingDER, c.der)
	}
	if endEntity == nil {
		return nil, nil, newError(KindCertificateNotAvailable, "end-entity certificate could not be parsed", nil)
	}

	chain := [][]byte{endEntityDER}
	current := endEntity
	for hop := 0; hop < maxChainHops; hop++ {
		if string(current.RawIssuer) == string(current.RawSubject) {
			break // self-signed: reached the root
		}
		found := -1
		for i, cand := range remaining {
			if string(cand.RawSubject) == string(current.RawIssuer) {
				found = i
				break
			}
		}
		if found == -1 {
			break // best-effort: no issuer found among remaining certs
		}
		chain = append(chain, remainingDER[found])
		current = remaining[found]
		remaining = append(remaining[:found], remaining[found+1:]...)
		remainingDER = append(remainingDER[:found], remainingDER[found+1:]...)
	}

	return endEntityDER, chain, nil
}

// CertificateInfo returns formatted information about the end-entity
// certificate located during Login.
func (m *Manager) CertificateInfo() (CertificateInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return CertificateInfo{}, ErrClosed
	}
	if m.endEntity == nil {
		return CertificateInfo{}, newError(KindNotLoggedIn, "not logged in", nil)
	}

	cert, err := x509.ParseCertificate(m.endEntity)
	if err != nil {
		return CertificateInfo{}, newError(KindCertificateNotAvailable, "failed to parse certificate", err)
	}

	subject, err := formatRawName(cert.RawSubject)
	if err != nil {
		return CertificateInfo{}, newError(KindCertificateNotAvailable, "failed to decode subject", err)
	}
	issuer, err := formatRawName(cert.RawIssuer)
	if err != nil {
		return CertificateInfo{}, newError(KindCertificateNotAvailable, "failed to decode issuer", err)
	}

	sum := sha256.Sum256(m.endEntity)

	return CertificateInfo{
		Serial:      cert.SerialNumber.String(),
		Subject:     subject,
		Issuer:      issuer,
		NotBefore:   cert.NotBefore.UTC().Format("2006-01-02T15:04:05Z"),
		NotAfter:    cert.NotAfter.UTC().Format("2006-01-02T15:04:05Z"),
		Thumbprint:  hex.EncodeToString(sum[:]),
		DERBase64:   base64.StdEncoding.EncodeToString(m.endEntity),
		ChainLength: len(m.chain),
	}, nil
}

// Certificate returns the parsed end-entity certificate for use by the CMS
// builder.
func (m *Manager) Certificate() (*x509.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.endEntity == nil {
		return nil, newError(KindNotLoggedIn, "not logged in", nil)
	}
	return x509.ParseCertificate(m.endEntity)
}

// Chain returns the parsed certificate chain, end-entity first.
func (m *Manager) Chain() ([]*x509.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.chain == nil {
		return nil, newError(KindNotLoggedIn, "not logged in", nil)
	}
	out := make([]*x509.Certificate, 0, len(m.chain))
	for _, der := range m.chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, newError(KindCertificateNotAvailable, "failed to parse chain certificate", err)
		}
		out = append(out, cert)
	}
	return out, nil
}

// Sign invokes the token's SHA-256-with-RSA-PKCS#1-v1.5 mechanism over
// data. The mechanism hashes internally; data must not be pre-hashed.
func (m *Manager) Sign(data []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.session == nil || m.keyHandle == nil {
		return nil, newError(KindNotLoggedIn, "not logged in", nil)
	}

	mechanism := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_SHA256_RSA_PKCS, nil)}
	if err := m.ctx.SignInit(*m.session, mechanism, *m.keyHandle); err != nil {
		return nil, newError(KindSigningFailed, "sign init failed", err)
	}

	sig, err := m.ctx.Sign(*m.session, data)
	if err != nil {
		return nil, newError(KindSigningFailed, "signing operation failed", err)
	}
	return sig, nil
}

// Logout clears the session, key handle, certificate, and chain. It is
// idempotent and safe to call even if Login was never called.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked()
}

func (m *Manager) logoutLocked() {
	if m.session != nil {
		_ = m.ctx.Logout(*m.session)
		_ = m.ctx.CloseSession(*m.session)
	}
	m.session = nil
	m.keyHandle = nil
	m.endEntity = nil
	m.chain = nil
}

// Close logs out (if needed) and finalizes the PKCS#11 provider. After
// Close returns, every other method returns ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.logoutLocked()
	err := m.ctx.Finalize()
	m.ctx.Destroy()
	m.closed = true
	return err
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// parseArchMismatch looks for the "have '<a>', need '<b>'" pattern emitted
// by dynamic loaders (notably macOS's dyld) when a shared library targets
// the wrong CPU architecture.
func parseArchMismatch(msg string) (libArch, hostArch string, ok bool) {
	haveIdx := strings.Index(msg, "have '")
	needIdx := strings.Index(msg, "need '")
	if haveIdx == -1 || needIdx == -1 {
		return "", "", false
	}
	libArch = extractQuoted(msg[haveIdx+len("have '"):])
	hostArch = extractQuoted(msg[needIdx+len("need '"):])
	if libArch == "" || hostArch == "" {
		return "", "", false
	}
	return libArch, hostArch, true
}

func extractQuoted(s string) string {
	if end := strings.IndexByte(s, '\''); end != -1 {
		return s[:end]
	}
	return ""
}

func archMismatchError(libraryPath, libArch, hostArch string) *Error {
	guidance := fmt.Sprintf("library %q targets %s but this host is %s; contact the CA vendor for a matching build", libraryPath, libArch, hostArch)
	if strings.Contains(hostArch, "arm64") && strings.Contains(libArch, "x86_64") {
		guidance = "This PKCS#11 library only supports Intel (x86_64). Ask the CA vendor for an ARM64 build, or run the host application under Rosetta 2."
	} else if strings.Contains(hostArch, "x86_64") && strings.Contains(libArch, "arm64") {
		guidance = "This PKCS#11 library only supports Apple Silicon (ARM64). Ask the CA vendor for an Intel (x86_64) build."
	}
	return &Error{
		Kind:        KindArchitectureMismatch,
		Msg:         "library architecture does not match host architecture",
		LibraryArch: libArch,
		HostArch:    hostArch,
		Guidance:    guidance,
	}
}

// HostArchitecture returns runtime.GOARCH, exposed for tests and for
// callers assembling their own guidance messages.
func HostArchitecture() string {
	return runtime.GOARCH
}
