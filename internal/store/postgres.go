package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/db"
	"github.com/sells-group/rulebook-cli/internal/model"
)

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to connString and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tournament_records (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	season                TEXT NOT NULL,
	year                  INTEGER NOT NULL,
	source                TEXT NOT NULL DEFAULT '',
	document_link         TEXT NOT NULL DEFAULT '',
	archived_document_url TEXT NOT NULL DEFAULT '',
	instructions_link     TEXT NOT NULL DEFAULT '',
	registration_link     TEXT NOT NULL DEFAULT '',
	fair_play_link        TEXT NOT NULL DEFAULT '',
	platform_link         TEXT NOT NULL DEFAULT '',
	extracted_info        JSONB,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tournament_records_key ON tournament_records(season, year);
CREATE INDEX IF NOT EXISTS idx_tournament_records_source ON tournament_records(source);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) FindRecords(ctx context.Context, f Filter) ([]model.TournamentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM tournament_records WHERE 1=1`
	var args []any

	if f.Season != "" {
		args = append(args, string(f.Season))
		query += fmt.Sprintf(` AND season = $%d`, len(args))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		query += fmt.Sprintf(` AND year = $%d`, len(args))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		query += fmt.Sprintf(` AND source = $%d`, len(args))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find records")
	}
	defer rows.Close()

	var records []model.TournamentRecord
	for rows.Next() {
		var r model.TournamentRecord
		var season string
		var info []byte
		if err := rows.Scan(&r.ID, &season, &r.Year, &r.Source, &r.DocumentLink, &r.ArchivedDocumentURL,
			&r.InstructionsLink, &r.RegistrationLink, &r.FairPlayLink, &r.PlatformLink,
			&info, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.Season = model.Season(season)
		if r.ExtractedInfo, err = unmarshalInfo(info); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: find records iterate")
}

func (s *PostgresStore) InsertRecord(ctx context.Context, r *model.TournamentRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	var info []byte
	if r.ExtractedInfo != nil {
		b, err := json.Marshal(r.ExtractedInfo)
		if err != nil {
			return "", eris.Wrap(err, "postgres: marshal extracted info")
		}
		info = b
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tournament_records (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, string(r.Season), r.Year, r.Source, r.DocumentLink, r.ArchivedDocumentURL,
		r.InstructionsLink, r.RegistrationLink, r.FairPlayLink, r.PlatformLink,
		info, now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert record")
	}
	return r.ID, nil
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, id string, p model.RecordPatch) error {
	args := []any{time.Now().UTC()}
	sets := []string{"updated_at = $1"}

	if p.ArchivedDocumentURL != nil {
		args = append(args, *p.ArchivedDocumentURL)
		sets = append(sets, fmt.Sprintf("archived_document_url = CASE WHEN archived_document_url = '' THEN $%d ELSE archived_document_url END", len(args)))
	}
	if p.ExtractedInfo != nil {
		b, err := json.Marshal(p.ExtractedInfo)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal extracted info")
		}
		args = append(args, b)
		sets = append(sets, fmt.Sprintf("extracted_info = $%d", len(args)))
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE tournament_records SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update record %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
