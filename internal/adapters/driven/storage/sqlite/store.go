package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// persistent cache and result store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.enrich/data/enrich.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".enrich", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "enrich.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ValidationStore returns a ValidationStore interface backed by this store.
func (s *Store) ValidationStore() driven.ValidationStore {
	return &validationStore{store: s}
}

// EmbeddingStore returns an EmbeddingStore interface backed by this store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// ResultStore returns a ResultStore interface backed by this store.
func (s *Store) ResultStore() driven.ResultStore {
	return &resultStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Validation Store ====================

// validationStore implements driven.ValidationStore.
type validationStore struct {
	store *Store
}

var _ driven.ValidationStore = (*validationStore)(nil)

// Get retrieves a cached validation decision.
func (s *validationStore) Get(ctx context.Context, key driven.ValidationKey) (*driven.ValidationRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT accepted, confidence, model, created_at
		FROM validation_decisions
		WHERE content_hash = ? AND concept_id = ? AND thesaurus_version = ?
	`, key.ContentHash, key.ConceptID, key.ThesaurusVersion)

	record := driven.ValidationRecord{Key: key}
	var createdAt sql.NullTime
	if err := row.Scan(&record.Accepted, &record.Confidence, &record.Model, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning validation decision: %w", err)
	}
	if createdAt.Valid {
		record.CreatedAt = createdAt.Time
	}
	return &record, nil
}

// Put stores a validation decision, overwriting any previous decision
// for the same key.
func (s *validationStore) Put(ctx context.Context, record driven.ValidationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO validation_decisions (content_hash, concept_id, thesaurus_version, accepted, confidence, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash, concept_id, thesaurus_version) DO UPDATE SET
			accepted = excluded.accepted,
			confidence = excluded.confidence,
			model = excluded.model,
			created_at = excluded.created_at
	`, record.Key.ContentHash, record.Key.ConceptID, record.Key.ThesaurusVersion,
		record.Accepted, record.Confidence, record.Model, record.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving validation decision: %w", err)
	}
	return nil
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// Get retrieves a cached concept embedding.
func (s *embeddingStore) Get(ctx context.Context, conceptID, modelTag string) ([]float32, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT vector FROM concept_embeddings
		WHERE concept_id = ? AND model_tag = ?
	`, conceptID, modelTag)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	return bytesToFloat32Slice(blob), nil
}

// GetBatch retrieves cached embeddings for multiple concepts. Missing
// concepts are absent from the returned map.
func (s *embeddingStore) GetBatch(ctx context.Context, conceptIDs []string, modelTag string) (map[string][]float32, error) {
	result := make(map[string][]float32, len(conceptIDs))
	if len(conceptIDs) == 0 {
		return result, nil
	}

	// SQLite caps bound parameters, so query in chunks.
	const chunkSize = 500
	for start := 0; start < len(conceptIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(conceptIDs) {
			end = len(conceptIDs)
		}
		if err := s.getChunk(ctx, conceptIDs[start:end], modelTag, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *embeddingStore) getChunk(ctx context.Context, chunk []string, modelTag string, result map[string][]float32) error {
	placeholders := strings.Repeat("?,", len(chunk)-1) + "?"
	args := make([]any, 0, len(chunk)+1)
	for _, id := range chunk {
		args = append(args, id)
	}
	args = append(args, modelTag)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT concept_id, vector FROM concept_embeddings
		WHERE concept_id IN (`+placeholders+`) AND model_tag = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("scanning embedding row: %w", err)
		}
		result[id] = bytesToFloat32Slice(blob)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating embeddings: %w", err)
	}
	return nil
}

// Put stores a concept embedding.
func (s *embeddingStore) Put(ctx context.Context, conceptID, modelTag string, vector []float32) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO concept_embeddings (concept_id, model_tag, vector, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(concept_id, model_tag) DO UPDATE SET
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			created_at = excluded.created_at
	`, conceptID, modelTag, float32SliceToBytes(vector), len(vector), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// ==================== Result Store ====================

// resultStore implements driven.ResultStore.
type resultStore struct {
	store *Store
}

var _ driven.ResultStore = (*resultStore)(nil)

// SaveResult stores a transcript's full run result as JSON, replacing
// any previous result for the same transcript.
func (s *resultStore) SaveResult(ctx context.Context, result *domain.RunResult) error {
	if result == nil || result.TranscriptID == "" {
		return fmt.Errorf("%w: result has no transcript ID", domain.ErrInvalidInput)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO run_results (transcript_id, interviewee_name, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(transcript_id) DO UPDATE SET
			interviewee_name = excluded.interviewee_name,
			result = excluded.result,
			updated_at = excluded.updated_at
	`, result.TranscriptID, result.IntervieweeName, string(payload), now, now)

	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}

// GetEnriched returns the stored enriched segments for a transcript.
func (s *resultStore) GetEnriched(ctx context.Context, transcriptID string) ([]domain.EnrichedSegment, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT result FROM run_results WHERE transcript_id = ?
	`, transcriptID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning result: %w", err)
	}

	var result domain.RunResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling result: %w", err)
	}
	return result.Enriched, nil
}

// ListTranscripts returns the IDs of transcripts with stored results.
func (s *resultStore) ListTranscripts(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT transcript_id FROM run_results ORDER BY transcript_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning transcript ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return ids, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
