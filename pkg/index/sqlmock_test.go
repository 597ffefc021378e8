package index

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// TestUpsertEvidenceAgainstMockDB exercises the query layer's SQL shape
// against a stubbed driver, without touching a real SQLite file.
func TestUpsertEvidenceAgainstMockDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	idx := FromDB(db)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO evidence").
		WithArgs("h1", "a.txt", "text/plain", "document", int64(6), ts.Format(time.RFC3339Nano), 0.9).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = idx.UpsertEvidence(context.Background(), EvidenceRow{
		SHA256: "h1", OriginalFilename: "a.txt", MIMEType: "text/plain",
		EvidenceType: "document", Size: 6, IngestedAt: ts, Confidence: 0.9,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
