package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.129 Safari/537.36"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariMacUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	iphoneUA        = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
)

func TestHasBrowserSignature(t *testing.T) {
	assert.True(t, HasBrowserSignature(chromeWindowsUA))
	assert.True(t, HasBrowserSignature(firefoxLinuxUA))
	assert.True(t, HasBrowserSignature(safariMacUA))
	assert.True(t, HasBrowserSignature("Mozilla/5.0 (Windows NT 10.0) Edg/120.0.2210.91"))
	assert.True(t, HasBrowserSignature("Mozilla/5.0 (Windows NT 10.0) OPR/105.0.4970.34"))

	assert.False(t, HasBrowserSignature("Mozilla/5.0"))
	assert.False(t, HasBrowserSignature("curl/8.4.0"))
	assert.False(t, HasBrowserSignature("python-requests/2.31.0"))
	assert.False(t, HasBrowserSignature("Mozilla/4.0 (compatible; MSIE 7.0; Windows NT 6.1)"))
}

func TestHasPlatformToken(t *testing.T) {
	assert.True(t, HasPlatformToken(chromeWindowsUA))
	assert.True(t, HasPlatformToken(firefoxLinuxUA))
	assert.True(t, HasPlatformToken(safariMacUA))
	assert.True(t, HasPlatformToken(iphoneUA))
	assert.True(t, HasPlatformToken("Mozilla/4.0 (compatible; ms-office; MSOffice 16) Microsoft Outlook 16.0.17126"))

	assert.False(t, HasPlatformToken("Mozilla/5.0 (compatible) AppleWebKit/537.36 Chrome/100.0.4896.60"))
	assert.False(t, HasPlatformToken("SomeScanner/1.0"))
}

func TestIsDenylistedAgent(t *testing.T) {
	denylisted := []string{
		"Mozilla/5.0 (Windows NT 10.0) SafeLinks/1.0 Chrome/100.0.4896.60",
		"Proofpoint-URL-Defense/2.0 (Windows NT 10.0) Chrome/100.0.4896.60",
		"Mozilla/5.0 (Windows NT 6.1) barracuda content-filter",
		"Mozilla/5.0 via GoogleImageProxy (KHTML, like Gecko)",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/96.0.0.0 Safari/537.36",
	}
	for _, ua := range denylisted {
		assert.True(t, IsDenylistedAgent(ua), ua)
	}

	assert.False(t, IsDenylistedAgent(chromeWindowsUA))
	assert.False(t, IsDenylistedAgent(firefoxLinuxUA))
}

func TestMailSecurityScrutiny(t *testing.T) {
	// Plausible Windows Chrome passes.
	assert.True(t, passesMailSecurityScrutiny(chromeWindowsUA))

	// No Windows token: detonation tooling.
	assert.False(t, passesMailSecurityScrutiny(firefoxLinuxUA))
	// Windows but no Chrome product at all.
	assert.False(t, passesMailSecurityScrutiny("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"))
	// Literal suspicious build list (primary signal).
	assert.False(t, passesMailSecurityScrutiny("Mozilla/5.0 (Windows NT 6.1; Win64; x64) AppleWebKit/537.36 Chrome/42.0.2311.135 Safari/537.36"))
	// Round build number (secondary signal).
	assert.False(t, passesMailSecurityScrutiny("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/99.0.4000.85 Safari/537.36"))
}
