package renderer

import (
	"net"
	"net/url"
	"strings"
)

// IsValidRemoteTarget reports whether a user-supplied remote compiler URL is
// an acceptable target. This is a trust-boundary control: it rejects
// anything that points back at the user's own machine or internal network
// rather than normalizing it. Only http and https schemes are accepted.
//
// Hostnames are checked syntactically; no DNS lookup is performed at
// validation time, so configuring a remote endpoint works offline.
func IsValidRemoteTarget(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
			ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return false
		}
	}

	return true
}
