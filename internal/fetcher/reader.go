package fetcher

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/pkg/jina"
)

// ReaderGetter fetches pages through a rendering reader service. Discovery
// uses it for pages the direct fetch found blocked.
type ReaderGetter struct {
	client jina.Client
}

// NewReaderGetter wraps a reader client as a Getter.
func NewReaderGetter(client jina.Client) *ReaderGetter {
	return &ReaderGetter{client: client}
}

// Get returns the rendered page as an HTML response.
func (g *ReaderGetter) Get(ctx context.Context, url string) (*Response, error) {
	resp, err := g.client.Read(ctx, url, "html")
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: reader %s", url)
	}
	pageURL := resp.Data.URL
	if pageURL == "" {
		pageURL = url
	}
	return &Response{
		URL:         pageURL,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Header:      http.Header{"Content-Type": []string{"text/html"}},
		Body:        []byte(resp.Data.Body()),
	}, nil
}
