package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"

	// mistralMaxBytes is the API's document upload ceiling.
	mistralMaxBytes = 50 << 20
)

// MistralOCR reads archived rulebooks, PDFs or page scans, through the
// Mistral OCR API.
type MistralOCR struct {
	apiKey   string
	model    string
	maxPages int
	endpoint string
	client   *http.Client
}

// NewMistralOCR creates a MistralOCR. An empty model uses the default.
// maxPages > 0 limits OCR to the leading pages of a PDF, where league
// rulebooks keep their schedule tables.
func NewMistralOCR(apiKey, model string, maxPages int) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		maxPages: maxPages,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
	}
}

type mistralRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	Pages              []int           `json:"pages,omitempty"`
	IncludeImageBase64 bool            `json:"include_image_base64"`
}

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// document builds the upload for data. Scanned rulebook pages arrive as
// images; anything else is sent as a PDF.
func (m *MistralOCR) document(data []byte) (mistralDocument, []int) {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return mistralDocument{
			Type:     "image_url",
			ImageURL: "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data),
		}, nil
	}
	var pages []int
	for i := 0; i < m.maxPages; i++ {
		pages = append(pages, i)
	}
	return mistralDocument{
		Type:        "document_url",
		DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
	}, pages
}

// ExtractText returns the markdown of every non-blank page, in page order.
func (m *MistralOCR) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) > mistralMaxBytes {
		return "", eris.Errorf("ocr: document is %d bytes, mistral accepts at most %d", len(data), mistralMaxBytes)
	}
	doc, pages := m.document(data)
	body, err := json.Marshal(mistralRequest{Model: m.model, Document: doc, Pages: pages})
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ocr: mistral request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: read mistral response")
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("ocr: mistral returned %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var out mistralResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", eris.Wrap(err, "ocr: decode mistral response")
	}

	parts := make([]string, 0, len(out.Pages))
	for _, p := range out.Pages {
		if md := strings.TrimSpace(p.Markdown); md != "" {
			parts = append(parts, md)
		}
	}
	return nonEmpty(strings.Join(parts, "\n\n"))
}
