package classify

import (
	"strings"

	"github.com/sells-group/rulebook-cli/internal/model"
)

// Host and path tokens the rules match against lower-cased hrefs.
const (
	driveFileToken  = "drive.google.com/file"
	docsHostToken   = "docs.google.com"
	formsPathToken  = "docs.google.com/forms"
	shortFormsHost  = "forms.gle"
	fairPlayToken   = "fairplay-agreement"
	pdfSuffixToken  = ".pdf"
	formsPathMarker = "/forms"
)

// DefaultPlatformTokens identify the third-party platform the league plays
// its community side on.
var DefaultPlatformTokens = []string{"discord.gg", "discord.com/invite"}

// DefaultExclusions are site chrome links present on every page of the host.
var DefaultExclusions = []string{"chess.com/register", "chess.com/login"}

// Rule assigns an anchor to a bucket when Match returns true. Match receives
// the lower-cased href and text.
type Rule struct {
	Bucket model.Bucket
	Match  func(href, text string) bool
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// DefaultRules returns the ordered rule table.
func DefaultRules(platformTokens []string) []Rule {
	return []Rule{
		{Bucket: model.BucketDocument, Match: func(href, text string) bool {
			if strings.Contains(text, "pdf") {
				return true
			}
			if containsAny(href, pdfSuffixToken, driveFileToken) {
				return true
			}
			return strings.Contains(href, docsHostToken) && !strings.Contains(href, formsPathMarker)
		}},
		{Bucket: model.BucketInstructions, Match: func(_, text string) bool {
			return strings.Contains(text, "instruction")
		}},
		{Bucket: model.BucketRegistration, Match: func(href, text string) bool {
			return containsAny(text, "registration", "register", "sign up") ||
				containsAny(href, shortFormsHost, formsPathToken)
		}},
		{Bucket: model.BucketFairPlay, Match: func(href, text string) bool {
			if strings.Contains(href, fairPlayToken) {
				return true
			}
			return strings.Contains(text, "fair play") &&
				!containsAny(href, "user-agreement", "/cheating", "legal")
		}},
		{Bucket: model.BucketPlatform, Match: func(href, _ string) bool {
			return containsAny(href, platformTokens...)
		}},
	}
}

// Classifier sorts anchors into buckets.
type Classifier struct {
	Rules      []Rule
	Exclusions []string
}

// NewClassifier builds a classifier with the default rule table. Empty
// platformTokens fall back to DefaultPlatformTokens.
func NewClassifier(platformTokens []string) *Classifier {
	if len(platformTokens) == 0 {
		platformTokens = DefaultPlatformTokens
	}
	return &Classifier{
		Rules:      DefaultRules(platformTokens),
		Exclusions: DefaultExclusions,
	}
}

// Classify evaluates every rule against every anchor. An anchor can land in
// several buckets; links keep page order and appear once per bucket.
func (c *Classifier) Classify(anchors []Anchor) model.Buckets {
	buckets := model.Buckets{}
	for _, a := range anchors {
		href := strings.ToLower(a.Href)
		if containsAny(href, c.Exclusions...) {
			continue
		}
		text := strings.ToLower(a.Text)
		for _, r := range c.Rules {
			if r.Match(href, text) {
				buckets.Add(r.Bucket, a.Href)
			}
		}
	}
	return buckets
}
