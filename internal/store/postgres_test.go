package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rulebook-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

var recordColumnNames = []string{
	"id", "season", "year", "source", "document_link", "archived_document_url",
	"instructions_link", "registration_link", "fair_play_link", "platform_link",
	"extracted_info", "created_at", "updated_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tournament_records`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindRecords_ByKey(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(recordColumnNames).
		AddRow("rec-1", "spring", 2026, "https://src", "https://a.com/rules.pdf", "",
			"", "https://forms.gle/x", "", "", []byte(`{"requirements":{"minimum_account_age":30,"minimum_games":10}}`), now, now)

	mock.ExpectQuery(`SELECT .* FROM tournament_records WHERE 1=1 AND season = \$1 AND year = \$2 ORDER BY created_at ASC`).
		WithArgs("spring", 2026).
		WillReturnRows(rows)

	got, err := s.FindRecords(context.Background(), KeyFilter(model.Key{Season: model.SeasonSpring, Year: 2026}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rec-1", got[0].ID)
	assert.Equal(t, model.SeasonSpring, got[0].Season)
	assert.Equal(t, "https://forms.gle/x", got[0].RegistrationLink)
	require.NotNil(t, got[0].ExtractedInfo)
	assert.InDelta(t, 10, got[0].ExtractedInfo.Requirements.MinimumGames, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindRecords_WithSource(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND source = \$3`).
		WithArgs("fall", 2025, "https://src").
		WillReturnRows(pgxmock.NewRows(recordColumnNames))

	got, err := s.FindRecords(context.Background(), Filter{Season: model.SeasonFall, Year: 2025, Source: "https://src"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindRecords_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection refused"))

	_, err := s.FindRecords(context.Background(), Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: find records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO tournament_records`).
		WithArgs(pgxmock.AnyArg(), "fall", 2025, "https://src", "https://a.com/r.pdf", "",
			"", "", "", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := &model.TournamentRecord{Season: model.SeasonFall, Year: 2025, Source: "https://src", DocumentLink: "https://a.com/r.pdf"}
	id, err := s.InsertRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_WriteOnceArchive(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE tournament_records SET updated_at = \$1, archived_document_url = CASE WHEN archived_document_url = '' THEN \$2 ELSE archived_document_url END WHERE id = \$3`).
		WithArgs(pgxmock.AnyArg(), "http://blobs/x.pdf", "rec-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	u := "http://blobs/x.pdf"
	require.NoError(t, s.UpdateRecord(context.Background(), "rec-1", model.RecordPatch{ArchivedDocumentURL: &u}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_ExtractedInfo(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`extracted_info = \$2 WHERE id = \$3`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "rec-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateRecord(context.Background(), "rec-1", model.RecordPatch{ExtractedInfo: &model.TournamentInfo{}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE tournament_records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRecord(context.Background(), "missing", model.RecordPatch{ExtractedInfo: &model.TournamentInfo{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
