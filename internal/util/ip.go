package util

import "net"

// IPClassification represents the network classification of a source IP
// address. Audit records attach the classification so operators can tell
// internal traffic from external traffic without resolving the address.
type IPClassification int

const (
	// IPClassificationPublic indicates a publicly routable IP address.
	IPClassificationPublic IPClassification = iota
	// IPClassificationLoopback indicates a loopback address (127.0.0.0/8, ::1).
	IPClassificationLoopback
	// IPClassificationPrivate indicates a private/internal address (RFC 1918, ULA).
	IPClassificationPrivate
	// IPClassificationLinkLocal indicates a link-local address (169.254.x.x, fe80::/10).
	IPClassificationLinkLocal
	// IPClassificationUnspecified indicates an unspecified address (0.0.0.0, ::).
	IPClassificationUnspecified
	// IPClassificationInvalid indicates a string that does not parse as an IP.
	IPClassificationInvalid
)

// String returns a human-readable name for the IP classification.
func (c IPClassification) String() string {
	switch c {
	case IPClassificationPublic:
		return "public"
	case IPClassificationLoopback:
		return "loopback"
	case IPClassificationPrivate:
		return "private"
	case IPClassificationLinkLocal:
		return "link_local"
	case IPClassificationUnspecified:
		return "unspecified"
	case IPClassificationInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ClassifyIP returns the network classification of an IP address.
//
// Classifications:
//   - Unspecified: 0.0.0.0, ::
//   - Loopback: 127.0.0.0/8, ::1
//   - LinkLocal: 169.254.0.0/16, fe80::/10
//   - Private: RFC 1918 (10/8, 172.16/12, 192.168/16), fc00::/7
//   - Public: all other addresses
func ClassifyIP(ip net.IP) IPClassification {
	if ip == nil {
		return IPClassificationUnspecified
	}
	if ip.IsUnspecified() {
		return IPClassificationUnspecified
	}
	if ip.IsLoopback() {
		return IPClassificationLoopback
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return IPClassificationLinkLocal
	}
	if ip.IsPrivate() {
		return IPClassificationPrivate
	}
	return IPClassificationPublic
}

// ClassifySourceIP classifies the free-form source IP string attached to a
// request. Callers pass whatever the upstream collaborator reported, so the
// string may be empty or malformed; both are reported as Invalid rather than
// an error because classification is advisory only.
func ClassifySourceIP(sourceIP string) IPClassification {
	ip := net.ParseIP(sourceIP)
	if ip == nil {
		return IPClassificationInvalid
	}
	return ClassifyIP(ip)
}
