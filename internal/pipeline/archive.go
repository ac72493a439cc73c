package pipeline

import (
	"context"
	"mime"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rulebook-cli/internal/blob"
	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/resolve"
	"github.com/sells-group/rulebook-cli/internal/store"
)

const defaultDocumentType = "application/pdf"

// ArchiveResult lists the records archived by this call and those that
// already had an archived copy.
type ArchiveResult struct {
	Updated []model.RecordUpdate `json:"updatedDocs" yaml:"updatedDocs"`
}

// Archive copies the document of every not-yet-archived record of key into
// the blob store. A record that fails is logged and left for a later call;
// its siblings still progress.
func (p *Pipeline) Archive(ctx context.Context, key model.Key) (*ArchiveResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	records, err := p.store.FindRecords(ctx, store.KeyFilter(key))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: archive find records")
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Key: key}
	}

	res := &ArchiveResult{Updated: []model.RecordUpdate{}}
	for _, rec := range records {
		log := zap.L().With(
			zap.String("season", string(key.Season)),
			zap.Int("year", key.Year),
			zap.String("record_id", rec.ID),
		)

		if rec.ArchivedDocumentURL != "" {
			res.Updated = append(res.Updated, model.RecordUpdate{
				ID:                  rec.ID,
				ArchivedDocumentURL: rec.ArchivedDocumentURL,
				AlreadyExists:       true,
			})
			continue
		}
		if rec.DocumentLink == "" {
			log.Warn("pipeline: archive skipped, no document link")
			continue
		}

		u, err := p.archiveRecord(ctx, key, rec)
		if err != nil {
			log.Warn("pipeline: archive skipped", zap.String("url", rec.DocumentLink), zap.Error(err))
			continue
		}
		log.Info("pipeline: document archived", zap.String("url", u))
		res.Updated = append(res.Updated, model.RecordUpdate{ID: rec.ID, ArchivedDocumentURL: u})
	}
	return res, nil
}

func (p *Pipeline) archiveRecord(ctx context.Context, key model.Key, rec model.TournamentRecord) (string, error) {
	dl, err := resolve.DownloadURL(rec.DocumentLink)
	if err != nil {
		return "", err
	}

	resp, err := p.fetch.Get(ctx, dl)
	if err != nil {
		return "", &FetchError{URL: dl, Err: err}
	}
	if !resp.OK() {
		return "", &FetchError{URL: dl, StatusCode: resp.StatusCode}
	}
	if len(resp.Body) == 0 {
		return "", &FetchError{URL: dl, StatusCode: resp.StatusCode, Err: eris.New("empty body")}
	}
	contentType := documentType(resp.ContentType)
	if contentType == "text/html" {
		// Viewer pages and interstitials, not the document itself.
		return "", &FetchError{URL: dl, StatusCode: resp.StatusCode, Err: eris.New("got an html page instead of a document")}
	}

	path := blob.ArchivePath(key, rec.ID, p.opts.Now())
	if err := p.blobs.Put(ctx, path, resp.Body, contentType); err != nil {
		return "", eris.Wrap(err, "pipeline: archive put")
	}
	u, err := p.blobs.URL(path)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: archive url")
	}
	if err := p.store.UpdateRecord(ctx, rec.ID, model.RecordPatch{ArchivedDocumentURL: &u}); err != nil {
		return "", eris.Wrap(err, "pipeline: archive update record")
	}
	return u, nil
}

// documentType normalizes a Content-Type header, defaulting to PDF when the
// server sends none or a generic binary type.
func documentType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "" || mt == "application/octet-stream" || mt == "binary/octet-stream" {
		return defaultDocumentType
	}
	return strings.ToLower(mt)
}
