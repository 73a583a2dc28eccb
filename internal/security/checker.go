package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"
)

// CertInfo describes the leaf certificate presented by the source.
type CertInfo struct {
	Endpoint string
	Issuer   string
	NotAfter time.Time
	DaysLeft int
	Status   string // valid | expiring | expired | unreachable
}

// Inspect dials the TLS endpoint of the given source URL and reports
// on the leaf certificate it presents. Because the scrape itself runs
// with verification relaxed, this is the only visibility into the
// internal certificate's health.
//
// Returns nil for non-HTTPS endpoints — there is no certificate to
// inspect. Inspection is informational and never fails the run.
func Inspect(ctx context.Context, sourceURL string, skipVerify bool) *CertInfo {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	info := &CertInfo{Endpoint: sourceURL}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		// No explicit port in the URL — append the HTTPS default.
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: skipVerify, //nolint:gosec // inspecting, not trusting
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		info.Status = "unreachable"
		return info
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		info.Status = "unreachable"
		return info
	}

	leaf := peerCerts[0]
	daysLeft := time.Until(leaf.NotAfter).Hours() / 24

	info.NotAfter = leaf.NotAfter.UTC()
	info.Issuer = leaf.Issuer.CommonName
	info.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		info.Status = "expired"
	case daysLeft <= 30:
		info.Status = "expiring"
	default:
		info.Status = "valid"
	}

	return info
}
