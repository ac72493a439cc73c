package scrape

import (
	"net/http"
	"strings"

	"github.com/sells-group/rulebook-cli/internal/fetcher"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// Interstitial pages are small; full articles routinely embed captcha
// widgets for comment or login forms.
const challengePageMaxBytes = 16 << 10

// DetectBlock checks a response for signs of anti-bot protection.
func DetectBlock(statusCode int, header http.Header, body []byte) (bool, BlockType) {
	if statusCode == http.StatusForbidden || statusCode == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if strings.EqualFold(header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return true, BlockCloudflare
	}

	if len(body) < challengePageMaxBytes {
		if strings.Contains(lower, "captcha") {
			return true, BlockCaptcha
		}
	}

	// JS-only shell: tiny body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

// Blocked runs DetectBlock over a fetched response.
func Blocked(resp *fetcher.Response) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	return DetectBlock(resp.StatusCode, resp.Header, resp.Body)
}
