package fetcher

import (
	"context"
	"net/http"
)

// Response is a fully read HTTP response.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Getter fetches a URL. A non-2xx status is returned as a Response, not an
// error; transport failures and timeouts are errors.
type Getter interface {
	Get(ctx context.Context, url string) (*Response, error)
}
