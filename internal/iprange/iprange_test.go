package iprange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInRange(t *testing.T) {
	tests := []struct {
		ip   string
		cidr string
		want bool
	}{
		{"40.92.1.5", "40.92.0.0/15", true},
		{"40.94.0.1", "40.92.0.0/15", false},
		{"10.0.0.1", "10.0.0.0/8", true},
		{"11.0.0.1", "10.0.0.0/8", false},
		{"192.168.1.200", "192.168.1.0/24", true},
		{"192.168.2.1", "192.168.1.0/24", false},
		{"1.2.3.4", "1.2.3.4/32", true},
		{"1.2.3.5", "1.2.3.4/32", false},
		{"8.8.8.8", "0.0.0.0/0", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InRange(tt.ip, tt.cidr), "%s in %s", tt.ip, tt.cidr)
	}
}

// Unparsable input always fails closed.
func TestInRangeFailsClosed(t *testing.T) {
	bad := []struct{ ip, cidr string }{
		{"", "10.0.0.0/8"},
		{"not-an-ip", "10.0.0.0/8"},
		{"10.0.0.999", "10.0.0.0/8"},
		{"10.0.0.1", ""},
		{"10.0.0.1", "10.0.0.0"},
		{"10.0.0.1", "10.0.0.0/33"},
		{"10.0.0.1", "banana/8"},
		{"::1", "10.0.0.0/8"},
		{"10.0.0.1", "2001:db8::/32"},
	}
	for _, tt := range bad {
		assert.False(t, InRange(tt.ip, tt.cidr), "%q in %q", tt.ip, tt.cidr)
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(ProviderRange{Provider: "corp-proxy", CIDR: "198.51.100.0/24"})

	provider, ok := m.Match("40.107.22.9")
	assert.True(t, ok)
	assert.Equal(t, "microsoft", provider)

	provider, ok = m.Match("67.231.150.1")
	assert.True(t, ok)
	assert.Equal(t, "proofpoint", provider)

	provider, ok = m.Match("198.51.100.77")
	assert.True(t, ok)
	assert.Equal(t, "corp-proxy", provider)

	_, ok = m.Match("203.0.113.50")
	assert.False(t, ok)
}
