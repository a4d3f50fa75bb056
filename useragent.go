package relief

import (
	"strings"

	"golang.org/x/text/cases"
)

// uaFolder case-folds user-agent strings before matching.
var uaFolder = cases.Fold()

// nonSafariTokens mark WebKit-derived user agents that are not Safari.
var nonSafariTokens = []string{
	"chrome", "chromium", "crios", "edg", "opr", "firefox", "fxios",
	"android", "samsungbrowser",
}

// IsUnreliableWebGPUHost reports whether ua identifies a host whose
// WebGPU implementation is known to misbehave with relief's passes:
// desktop Safari, and every iOS/iPadOS browser (they all ship WebKit).
// The result is a policy decision; callers never retry WebGPU after it.
func IsUnreliableWebGPUHost(ua string) bool {
	if ua == "" {
		return false
	}
	s := uaFolder.String(ua)

	if strings.Contains(s, "iphone") || strings.Contains(s, "ipad") || strings.Contains(s, "ipod") {
		return true
	}
	if !strings.Contains(s, "safari") || !strings.Contains(s, "applewebkit") {
		return false
	}
	for _, tok := range nonSafariTokens {
		if strings.Contains(s, tok) {
			return false
		}
	}
	return true
}
