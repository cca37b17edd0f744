package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// browserVersionRe matches a real-browser product token with a dotted
// version: Chrome/120.0.6099.129, Firefox/121.0, Edg/120.0.2210.91,
// OPR/105.0.4970.34, Safari's Version/17.1, and the iOS variants.
var browserVersionRe = regexp.MustCompile(`(?:Chrome|CriOS|Firefox|FxiOS|Edg[AiO]?|OPR|Version)/\d+\.\d+`)

// HasBrowserSignature reports whether the user agent carries at least one
// real-browser version pattern.
func HasBrowserSignature(ua string) bool {
	return browserVersionRe.MatchString(ua)
}

// platformTokens are OS markers every genuine browser agent includes.
var platformTokens = []string{"windows", "macintosh", "mac os", "linux", "android", "iphone", "ipad", "cros"}

// mailClientTokens are desktop/mobile mail client signatures that embed a
// browser engine but phrase the platform differently.
var mailClientTokens = []string{"microsoft outlook", "outlook-ios", "outlook-android", "ms-office", "thunderbird"}

// mobileBrowserTokens identify mobile browsers whose agents are otherwise
// terse about the platform.
var mobileBrowserTokens = []string{"mobile safari", "crios/", "fxios/", "samsungbrowser"}

// HasPlatformToken reports whether the user agent mentions a recognized
// OS/platform, a known desktop mail client, or a mobile browser signature.
func HasPlatformToken(ua string) bool {
	lower := strings.ToLower(ua)
	for _, t := range platformTokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	for _, t := range mailClientTokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	for _, t := range mobileBrowserTokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// scannerMarkers are literal fingerprints security products leave in agent
// strings. Lowercase; matched case-insensitively.
var scannerMarkers = []string{
	"safelinks",
	"security-scan",
	"securityscanner",
	"content-filter",
	"googleimageproxy",
	"ggpht.com",
	"bingpreview",
	"urldefense",
	"proofpoint",
	"mimecast",
	"barracuda",
	"messagelabs",
	"symantec",
	"trendmicro",
	"forcepoint",
	"paloaltonetworks",
	"slackbot",
	"skypeuripreview",
}

// roundBuildRe catches suspiciously round build numbers like
// Chrome/96.0.0.0: real Chrome releases never ship x.0.0.0 builds, scanner
// farms frequently do.
var roundBuildRe = regexp.MustCompile(`/\d+\.0\.0\.0(?:[^\d]|$)`)

// IsDenylistedAgent reports whether the user agent carries a known scanner
// fingerprint: a literal provider marker or a suspiciously round version.
func IsDenylistedAgent(ua string) bool {
	lower := strings.ToLower(ua)
	for _, marker := range scannerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return roundBuildRe.MatchString(ua)
}

// suspiciousChromeBuilds are full Chrome versions observed almost
// exclusively from Microsoft ATP/EOP detonation hosts. This literal list is
// the primary signal; the round-number heuristic below is secondary.
var suspiciousChromeBuilds = map[string]bool{
	"42.0.2311.135": true,
	"51.0.2704.79":  true,
	"52.0.2743.116": true,
	"58.0.3029.110": true,
	"64.0.3282.140": true,
	"70.0.3538.102": true,
	"71.0.3578.98":  true,
	"79.0.3945.74":  true,
}

var chromeVersionRe = regexp.MustCompile(`Chrome/(\d+)\.(\d+)\.(\d+)\.(\d+)`)

// passesMailSecurityScrutiny applies the stricter sub-checks for traffic
// sourced from a known mail-scanning CIDR: the agent must present a Windows
// platform token and a Chrome build that is not "too clean".
func passesMailSecurityScrutiny(ua string) bool {
	if !strings.Contains(strings.ToLower(ua), "windows") {
		return false
	}
	m := chromeVersionRe.FindStringSubmatch(ua)
	if m == nil {
		// Mail-security ranges emit Chrome-flavored agents; anything else
		// from those ranges is detonation tooling.
		return false
	}
	full := strings.Join(m[1:], ".")
	if suspiciousChromeBuilds[full] {
		return false
	}
	// Secondary, lower-confidence signal: statistically round build numbers
	// only reject when the source is already inside a scanner range.
	build, err := strconv.Atoi(m[3])
	if err == nil && build > 0 && build%1000 == 0 {
		return false
	}
	return true
}
