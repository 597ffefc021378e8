// Package index maintains a SQLite-backed derived query index over the
// content-addressed store's cases, evidence, and correlated entities. It is
// an accelerant cache only: every row is rebuildable from the JSON-of-record
// under the store root, and correctness-critical decisions (idempotency
// checks, custody monotonicity) always consult the store's on-disk files
// directly, never this index.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Index wraps a *sql.DB holding the derived query tables.
type Index struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite index database at path and
// ensures its schema exists. Pass ":memory:" for an ephemeral index.
func Open(path string) (*Index, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	idx := &Index{db: db}
	if err := idx.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// FromDB wraps an already-open *sql.DB (used by tests with sqlmock).
func FromDB(db *sql.DB) *Index {
	return &Index{db: db}
}

func (idx *Index) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS evidence (
		sha256 TEXT PRIMARY KEY,
		original_filename TEXT,
		mime_type TEXT,
		evidence_type TEXT,
		size INTEGER,
		ingested_at DATETIME,
		confidence REAL
	);
	CREATE TABLE IF NOT EXISTS case_evidence (
		case_id TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		PRIMARY KEY (case_id, sha256)
	);
	CREATE INDEX IF NOT EXISTS idx_case_evidence_case ON case_evidence(case_id);
	CREATE TABLE IF NOT EXISTS custody (
		sha256 TEXT NOT NULL,
		ts DATETIME NOT NULL,
		actor TEXT,
		action TEXT,
		note TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_custody_sha_ts ON custody(sha256, ts);
	CREATE TABLE IF NOT EXISTS entities (
		case_id TEXT NOT NULL,
		canonical_name TEXT NOT NULL,
		entity_type TEXT,
		occurrence_count INTEGER,
		correlation_confidence REAL,
		PRIMARY KEY (case_id, canonical_name)
	);
	`
	_, err := idx.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("index: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// EvidenceRow is one row of the evidence table's index view.
type EvidenceRow struct {
	SHA256           string
	OriginalFilename string
	MIMEType         string
	EvidenceType     string
	Size             int64
	IngestedAt       time.Time
	Confidence       float64
}

// UpsertEvidence inserts or replaces hash's indexed metadata.
func (idx *Index) UpsertEvidence(ctx context.Context, row EvidenceRow) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO evidence (sha256, original_filename, mime_type, evidence_type, size, ingested_at, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO UPDATE SET
			original_filename=excluded.original_filename,
			mime_type=excluded.mime_type,
			evidence_type=excluded.evidence_type,
			size=excluded.size,
			ingested_at=excluded.ingested_at,
			confidence=excluded.confidence
	`, row.SHA256, row.OriginalFilename, row.MIMEType, row.EvidenceType, row.Size, row.IngestedAt.UTC().Format(time.RFC3339Nano), row.Confidence)
	if err != nil {
		return fmt.Errorf("index: upsert evidence %s: %w", row.SHA256, err)
	}
	return nil
}

// LinkCase records hash's membership in caseID, idempotently.
func (idx *Index) LinkCase(ctx context.Context, caseID, hash string) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO case_evidence (case_id, sha256) VALUES (?, ?)
	`, caseID, hash)
	if err != nil {
		return fmt.Errorf("index: link case %s/%s: %w", caseID, hash, err)
	}
	return nil
}

// ListCase returns the hashes indexed as members of caseID, lexicographically
// ordered.
func (idx *Index) ListCase(ctx context.Context, caseID string) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT sha256 FROM case_evidence WHERE case_id = ? ORDER BY sha256
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("index: list case %s: %w", caseID, err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("index: scan case row: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// AppendCustody records one custody entry for hash in the index.
func (idx *Index) AppendCustody(ctx context.Context, hash string, ts time.Time, actor, action, note string) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO custody (sha256, ts, actor, action, note) VALUES (?, ?, ?, ?, ?)
	`, hash, ts.UTC().Format(time.RFC3339Nano), actor, action, note)
	if err != nil {
		return fmt.Errorf("index: append custody %s: %w", hash, err)
	}
	return nil
}

// CustodyRange returns hash's custody entries with timestamps in [from, to].
func (idx *Index) CustodyRange(ctx context.Context, hash string, from, to time.Time) ([]CustodyRow, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT ts, actor, action, note FROM custody
		WHERE sha256 = ? AND ts >= ? AND ts <= ?
		ORDER BY ts
	`, hash, from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("index: custody range %s: %w", hash, err)
	}
	defer rows.Close()

	var out []CustodyRow
	for rows.Next() {
		var r CustodyRow
		var ts string
		var note sql.NullString
		if err := rows.Scan(&ts, &r.Actor, &r.Action, &note); err != nil {
			return nil, fmt.Errorf("index: scan custody row: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("index: parse custody timestamp %q: %w", ts, err)
		}
		r.Note = note.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// CustodyRow is one indexed chain-of-custody entry.
type CustodyRow struct {
	Timestamp time.Time
	Actor     string
	Action    string
	Note      string
}

// UpsertEntity records an entity's correlation summary for caseID.
func (idx *Index) UpsertEntity(ctx context.Context, caseID, canonicalName, entityType string, occurrenceCount int, confidence float64) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO entities (case_id, canonical_name, entity_type, occurrence_count, correlation_confidence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(case_id, canonical_name) DO UPDATE SET
			entity_type=excluded.entity_type,
			occurrence_count=excluded.occurrence_count,
			correlation_confidence=excluded.correlation_confidence
	`, caseID, canonicalName, entityType, occurrenceCount, confidence)
	if err != nil {
		return fmt.Errorf("index: upsert entity %s/%s: %w", caseID, canonicalName, err)
	}
	return nil
}

// SearchEntities returns entities in caseID whose canonical name contains
// substr (case-insensitive), ordered by occurrence count descending.
func (idx *Index) SearchEntities(ctx context.Context, caseID, substr string) ([]EntityRow, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT canonical_name, entity_type, occurrence_count, correlation_confidence
		FROM entities
		WHERE case_id = ? AND canonical_name LIKE ?
		ORDER BY occurrence_count DESC, canonical_name
	`, caseID, "%"+substr+"%")
	if err != nil {
		return nil, fmt.Errorf("index: search entities %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		var r EntityRow
		if err := rows.Scan(&r.CanonicalName, &r.Type, &r.OccurrenceCount, &r.CorrelationConfidence); err != nil {
			return nil, fmt.Errorf("index: scan entity row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EntityRow is one indexed entity correlation summary.
type EntityRow struct {
	CanonicalName         string
	Type                  string
	OccurrenceCount       int
	CorrelationConfidence float64
}
