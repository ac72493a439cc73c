package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/store"
)

// ExtractResult is the structured info stored on the extracted record.
type ExtractResult struct {
	RecordID       string                `json:"recordId" yaml:"recordId"`
	TournamentInfo *model.TournamentInfo `json:"tournamentInfo" yaml:"tournamentInfo"`
}

// Extract reads the archived document of the key's most advanced record,
// asks the language model for the schedule once, and stores the parsed result
// over any previous extraction.
func (p *Pipeline) Extract(ctx context.Context, key model.Key) (*ExtractResult, error) {
	rec, text, err := p.archivedText(ctx, key)
	if err != nil {
		return nil, err
	}
	if p.llm == nil {
		return nil, eris.New("pipeline: extract requires a language model")
	}
	log := zap.L().With(
		zap.String("season", string(key.Season)),
		zap.Int("year", key.Year),
		zap.String("record_id", rec.ID),
	)
	log.Info("pipeline: document text extracted", zap.Int("chars", len(text)))

	out, err := p.llm.Complete(ctx, BuildExtractionPrompt(text))
	if err != nil {
		return nil, &UpstreamError{Provider: "llm", Err: err}
	}
	info, err := ParseTournamentInfo(out)
	if err != nil {
		return nil, err
	}
	for _, w := range ScheduleWarnings(info) {
		log.Warn("pipeline: extracted schedule looks incomplete", zap.String("detail", w))
	}

	if err := p.store.UpdateRecord(ctx, rec.ID, model.RecordPatch{ExtractedInfo: info}); err != nil {
		return nil, eris.Wrap(err, "pipeline: extract update record")
	}
	log.Info("pipeline: tournament info stored")
	return &ExtractResult{RecordID: rec.ID, TournamentInfo: info}, nil
}

// DocumentText returns the text of the key's most advanced archived document.
func (p *Pipeline) DocumentText(ctx context.Context, key model.Key) (string, error) {
	_, text, err := p.archivedText(ctx, key)
	return text, err
}

// archivedText picks the key's most advanced record and runs text extraction
// over its archived document.
func (p *Pipeline) archivedText(ctx context.Context, key model.Key) (*model.TournamentRecord, string, error) {
	if err := validateKey(key); err != nil {
		return nil, "", err
	}
	records, err := p.store.FindRecords(ctx, store.KeyFilter(key))
	if err != nil {
		return nil, "", eris.Wrap(err, "pipeline: find records")
	}
	rec := model.MostAdvanced(records)
	if rec == nil {
		return nil, "", &NotFoundError{Key: key}
	}
	if rec.ArchivedDocumentURL == "" {
		return nil, "", &PreconditionError{Missing: "archivedDocumentUrl"}
	}
	if p.ocr == nil {
		return nil, "", eris.New("pipeline: no text extractor configured")
	}

	data, err := p.readArchived(ctx, rec.ArchivedDocumentURL)
	if err != nil {
		return nil, "", err
	}
	text, err := p.ocr.ExtractText(ctx, data)
	if err != nil {
		return nil, "", eris.Wrap(err, "pipeline: extract text")
	}
	return rec, text, nil
}

// blobReader is implemented by blob stores that can serve their own durable
// URLs without an HTTP round trip.
type blobReader interface {
	PathFromURL(u string) (string, bool)
	Get(p string) ([]byte, string, error)
}

// readArchived loads an archived document, from the local blob store when it
// issued the URL and over HTTP otherwise.
func (p *Pipeline) readArchived(ctx context.Context, u string) ([]byte, error) {
	if br, ok := p.blobs.(blobReader); ok {
		if path, ok := br.PathFromURL(u); ok {
			data, _, err := br.Get(path)
			if err != nil {
				return nil, &FetchError{URL: u, Err: err}
			}
			return data, nil
		}
	}

	resp, err := p.fetch.Get(ctx, u)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	if !resp.OK() {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

