// Package iprange matches IPv4 addresses against CIDR blocks of known
// mail-security providers (Microsoft ATP/EOP, Proofpoint, Mimecast, ...).
// Hits from these ranges get extra scrutiny in the classifier because their
// scanners prefetch every pixel and link in an inbound email.
package iprange

import (
	"net"
	"strings"
)

// InRange reports whether ip falls inside the given IPv4 CIDR block.
// Any parse failure (either argument) returns false: unparsable input is
// never treated as in-range.
func InRange(ip, cidr string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.To4() == nil {
		return false
	}
	_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil || network.IP.To4() == nil {
		return false
	}
	return network.Contains(parsed)
}

// ProviderRange associates a CIDR block with the mail-security vendor that
// announces it.
type ProviderRange struct {
	Provider string `yaml:"provider"`
	CIDR     string `yaml:"cidr"`
}

// DefaultRanges is the built-in table of mail-security scanner egress ranges.
// It is static configuration, not state: deployments may extend it via the
// classifier config, and nothing in the tracking core ever mutates it.
var DefaultRanges = []ProviderRange{
	// Microsoft Defender for Office 365 (ATP) / Exchange Online Protection
	{"microsoft", "40.92.0.0/15"},
	{"microsoft", "40.107.0.0/16"},
	{"microsoft", "52.100.0.0/14"},
	{"microsoft", "104.47.0.0/17"},
	{"microsoft", "13.107.6.0/24"},
	// Proofpoint
	{"proofpoint", "67.231.144.0/20"},
	{"proofpoint", "148.163.128.0/19"},
	// Mimecast
	{"mimecast", "205.139.110.0/24"},
	{"mimecast", "146.101.78.0/24"},
	{"mimecast", "207.211.30.0/24"},
	// Barracuda
	{"barracuda", "64.235.144.0/20"},
	{"barracuda", "209.222.80.0/21"},
	// Cisco IronPort
	{"cisco", "68.232.128.0/19"},
	{"cisco", "216.71.152.0/21"},
	// FireEye / Trellix ETP
	{"fireeye", "66.45.176.0/20"},
}

// Matcher answers "does this IP belong to a mail-security provider" lookups
// against a fixed set of ranges. Safe for concurrent use: the range set is
// immutable after construction.
type Matcher struct {
	ranges []ProviderRange
}

// NewMatcher builds a matcher over the default provider table plus any
// deployment-specific extra ranges.
func NewMatcher(extra ...ProviderRange) *Matcher {
	ranges := make([]ProviderRange, 0, len(DefaultRanges)+len(extra))
	ranges = append(ranges, DefaultRanges...)
	ranges = append(ranges, extra...)
	return &Matcher{ranges: ranges}
}

// Match returns the provider owning the first range containing ip, or
// ("", false) when the IP is outside every known scanner range.
func (m *Matcher) Match(ip string) (string, bool) {
	for _, r := range m.ranges {
		if InRange(ip, r.CIDR) {
			return r.Provider, true
		}
	}
	return "", false
}
