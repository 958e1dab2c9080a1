package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyHeaders are consulted in order when the proxy is trusted.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// ParseHostNoPort strips an optional port from "ip:port", "[v6]:port" or
// "host". Anything that does not split is returned as is.
func ParseHostNoPort(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientIP resolves the caller's address. Proxy headers are only read
// when trustProxy is set, which must only be the case behind a tunnel or
// reverse proxy that overwrites them; X-Forwarded-For yields its left-most
// entry.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, name := range proxyHeaders {
			v, _, _ := strings.Cut(r.Header.Get(name), ",")
			if ip := ParseHostNoPort(strings.TrimSpace(v)); ip != "" {
				return ip
			}
		}
	}
	return ParseHostNoPort(r.RemoteAddr)
}

// IPMatcher holds an allow-list of prefixes. A bare address is kept as a
// full-length prefix.
type IPMatcher struct {
	prefixes []netip.Prefix
	invalid  []string
}

func NewIPMatcher(list []string) *IPMatcher {
	m := &IPMatcher{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			a = a.Unmap()
			m.prefixes = append(m.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		m.invalid = append(m.invalid, s)
	}
	return m
}

// Invalid returns the entries that were neither an address nor a prefix.
func (m *IPMatcher) Invalid() []string { return m.invalid }

func (m *IPMatcher) IsEmpty() bool { return len(m.prefixes) == 0 }

// Allow reports whether ip falls in any prefix. IPv4-mapped IPv6
// addresses match their IPv4 form.
func (m *IPMatcher) Allow(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range m.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
