package classify

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Anchor is one outbound link on a page: its resolved href and visible text.
type Anchor struct {
	Href string
	Text string
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// ExtractAnchors parses html and returns every a[href], resolving relative
// hrefs against base. Fragment-only and non-http links are dropped.
func ExtractAnchors(html io.Reader, base *url.URL) ([]Anchor, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, eris.Wrap(err, "classify: parse html")
	}

	var anchors []Anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		anchors = append(anchors, Anchor{
			Href: u.String(),
			Text: strings.TrimSpace(innerWhitespace.ReplaceAllString(s.Text(), " ")),
		})
	})
	return anchors, nil
}
