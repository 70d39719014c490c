package probe

import (
	"crypto/tls"
	"time"
)

// CertInfo is the opaque certificate summary attached to an assessment.
// No chain parsing happens anywhere; these three fields are all downstream
// stages may rely on.
type CertInfo struct {
	Issuer   string
	NotAfter time.Time
	DaysLeft int
}

// CertSource resolves certificate facts from a completed handshake. Kept as
// an interface so deployments with an external certificate inventory can
// substitute their own lookup.
type CertSource interface {
	Lookup(state *tls.ConnectionState) *CertInfo
}

// HandshakeCerts reads the leaf certificate the probe connection already
// negotiated.
type HandshakeCerts struct{}

func (HandshakeCerts) Lookup(state *tls.ConnectionState) *CertInfo {
	if state == nil || len(state.PeerCertificates) == 0 {
		return nil
	}
	leaf := state.PeerCertificates[0]
	return &CertInfo{
		Issuer:   leaf.Issuer.CommonName,
		NotAfter: leaf.NotAfter,
		DaysLeft: int(time.Until(leaf.NotAfter).Hours() / 24),
	}
}
