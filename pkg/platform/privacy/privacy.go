// Package privacy reduces personal data to forms safe for logs and traces.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"
)

// AnonymizeIP keeps the /24 of an IPv4 address or the /48 of an IPv6 address.
// Returns "unknown" for empty input and "invalid" for unparseable input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// HashKey returns a short stable digest of an identity key (email, username)
// so log lines can be correlated without carrying the key itself.
func HashKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
