package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rulebook-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tournament_records (
	id                    TEXT PRIMARY KEY,
	season                TEXT NOT NULL,
	year                  INTEGER NOT NULL,
	source                TEXT NOT NULL DEFAULT '',
	document_link         TEXT NOT NULL DEFAULT '',
	archived_document_url TEXT NOT NULL DEFAULT '',
	instructions_link     TEXT NOT NULL DEFAULT '',
	registration_link     TEXT NOT NULL DEFAULT '',
	fair_play_link        TEXT NOT NULL DEFAULT '',
	platform_link         TEXT NOT NULL DEFAULT '',
	extracted_info        TEXT,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tournament_records_key ON tournament_records(season, year);
CREATE INDEX IF NOT EXISTS idx_tournament_records_source ON tournament_records(source);
`

const recordColumns = `id, season, year, source, document_link, archived_document_url, instructions_link, registration_link, fair_play_link, platform_link, extracted_info, created_at, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindRecords(ctx context.Context, f Filter) ([]model.TournamentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM tournament_records WHERE 1=1`
	var args []any

	if f.Season != "" {
		query += ` AND season = ?`
		args = append(args, string(f.Season))
	}
	if f.Year != 0 {
		query += ` AND year = ?`
		args = append(args, f.Year)
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find records")
	}
	defer rows.Close()

	var records []model.TournamentRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: find records iterate")
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, r *model.TournamentRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	info, err := marshalInfo(r.ExtractedInfo)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tournament_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Season), r.Year, r.Source, r.DocumentLink, r.ArchivedDocumentURL,
		r.InstructionsLink, r.RegistrationLink, r.FairPlayLink, r.PlatformLink,
		info, now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert record")
	}
	return r.ID, nil
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, id string, p model.RecordPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if p.ArchivedDocumentURL != nil {
		sets = append(sets, "archived_document_url = CASE WHEN archived_document_url = '' THEN ? ELSE archived_document_url END")
		args = append(args, *p.ArchivedDocumentURL)
	}
	if p.ExtractedInfo != nil {
		info, err := marshalInfo(p.ExtractedInfo)
		if err != nil {
			return err
		}
		sets = append(sets, "extracted_info = ?")
		args = append(args, info)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tournament_records SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update record %s", id)
	}
	return checkRowsAffected(res, id)
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func marshalInfo(info *model.TournamentInfo) (any, error) {
	if info == nil {
		return nil, nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal extracted info")
	}
	return string(b), nil
}

func unmarshalInfo(raw []byte) (*model.TournamentInfo, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var info model.TournamentInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal extracted info")
	}
	return &info, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.TournamentRecord, error) {
	var r model.TournamentRecord
	var season string
	var info sql.NullString

	err := row.Scan(&r.ID, &season, &r.Year, &r.Source, &r.DocumentLink, &r.ArchivedDocumentURL,
		&r.InstructionsLink, &r.RegistrationLink, &r.FairPlayLink, &r.PlatformLink,
		&info, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}
	r.Season = model.Season(season)

	if info.Valid {
		r.ExtractedInfo, err = unmarshalInfo([]byte(info.String))
		if err != nil {
			return nil, err
		}
	}
	return &r, nil
}
