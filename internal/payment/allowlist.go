package payment

import (
	"net"
	"net/netip"
	"strings"
)

// yooKassaNets are the notification source prefixes published by YooKassa.
var yooKassaNets = []string{
	"185.71.76.0/27",
	"185.71.77.0/27",
	"77.75.153.0/25",
	"77.75.156.11/32",
	"77.75.156.35/32",
	"77.75.154.128/25",
	"2a02:5180::/32",
}

// Allowlist validates webhook source addresses against the gateway prefixes.
// Strict mode (the default) rejects unknown addresses; permissive mode only
// logs them, for staging behind tunnels that rewrite the source address.
type Allowlist struct {
	prefixes []netip.Prefix
	Strict   bool
}

func NewAllowlist(strict bool) *Allowlist {
	a := &Allowlist{Strict: strict}
	for _, cidr := range yooKassaNets {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		a.prefixes = append(a.prefixes, p)
	}
	return a
}

// Allowed reports whether ip belongs to a known gateway prefix. In
// permissive mode every parseable address passes.
func (a *Allowlist) Allowed(ip string) bool {
	// Strip a port if the caller handed us host:port, including the
	// bracketed [v6]:port form.
	ip = strings.TrimSpace(ip)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	if !a.Strict {
		return true
	}
	for _, p := range a.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
