package service

import (
	"net/netip"
	"net/url"
	"strings"

	"linkgate/internal/apperr"
)

const maxURLLength = 2048

// ValidateDestination checks that raw is an absolute http(s) URL pointing at
// a public host. selfHost is the service's own host, rejected to prevent
// redirect loops. Hostnames are not resolved.
func ValidateDestination(raw, selfHost string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.InvalidInput("url is required")
	}
	if len(raw) > maxURLLength {
		return "", apperr.InvalidInput("url is too long")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "url is malformed", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", apperr.InvalidInput("url must use http or https")
	}
	if u.User != nil {
		return "", apperr.InvalidInput("url must not contain credentials")
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", apperr.InvalidInput("url must have a host")
	}
	if err := checkHost(host); err != nil {
		return "", err
	}
	if selfHost != "" && host == strings.ToLower(selfHost) {
		return "", apperr.InvalidInput("url must not point at this service")
	}

	return raw, nil
}

// reservedPrefixes are never valid destinations: private, shared, loopback,
// link-local, documentation, benchmarking, multicast and transition ranges
// that can reach them.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.88.99.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("64:ff9b::/96"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/32"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("2002::/16"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

func checkHost(host string) error {
	if addr, err := netip.ParseAddr(host); err == nil {
		if !publicAddr(addr) {
			return apperr.InvalidInput("url host must be a public address")
		}
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return apperr.InvalidInput("url host must be a public address")
	}
	// Numeric forms such as 2130706433 or 127.1 are IPs to most resolvers.
	if strings.Trim(host, "0123456789.") == "" || strings.HasPrefix(host, "0x") {
		return apperr.InvalidInput("url host must be a public address")
	}
	if !strings.Contains(host, ".") {
		return apperr.InvalidInput("url host must be a fully qualified domain")
	}
	return nil
}

func publicAddr(addr netip.Addr) bool {
	addr = addr.WithZone("").Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
