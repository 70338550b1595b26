package store

import (
	"bufio"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/tcg/internal/fragment"
)

// SQLiteGrammarStore implements GrammarStore using SQLite for persistence.
// Fragments are stored as JSON and exported to fragments.jsonl on Sync().
type SQLiteGrammarStore struct {
	mu            sync.RWMutex
	db            *sql.DB
	dir           string
	dbPath        string
	fragmentsFile string
}

// NewSQLiteGrammarStore creates a new SQLiteGrammarStore rooted at projectRoot.
// It creates the database at .tcg/grammar.db and imports an existing
// fragments.jsonl into an empty database.
func NewSQLiteGrammarStore(projectRoot string) (*SQLiteGrammarStore, error) {
	dir := LocalPath(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}

	dbPath := filepath.Join(dir, "grammar.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	ctx := context.Background()
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteGrammarStore{
		db:            db,
		dir:           dir,
		dbPath:        dbPath,
		fragmentsFile: filepath.Join(dir, "fragments.jsonl"),
	}
	if err := s.autoImport(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to auto-import JSONL: %w", err)
	}
	return s, nil
}

// autoImport loads fragments.jsonl when the database has no fragments yet.
func (s *SQLiteGrammarStore) autoImport(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count fragments: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := s.ImportJSONL(ctx, s.fragmentsFile); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dirty_fragments`); err != nil {
		return fmt.Errorf("failed to clear dirty flags: %w", err)
	}
	return nil
}

// AddFragment adds or replaces a fragment.
func (s *SQLiteGrammarStore) AddFragment(ctx context.Context, f *fragment.Fragment) (string, error) {
	if f == nil || f.ID == "" {
		return "", fmt.Errorf("fragment ID is required")
	}
	if err := f.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addFragmentUnlocked(ctx, f)
}

func (s *SQLiteGrammarStore) addFragmentUnlocked(ctx context.Context, f *fragment.Fragment) (string, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fragment %s: %w", f.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fragments (id, name, class, body, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			body = excluded.body,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		f.ID, f.Name, string(f.Class), string(body), computeContentHash(body), now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert fragment %s: %w", f.ID, err)
	}
	return f.ID, nil
}

// GetFragment retrieves a fragment by ID. Returns nil if not found.
func (s *SQLiteGrammarStore) GetFragment(ctx context.Context, id string) (*fragment.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM fragments WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fragment %s: %w", id, err)
	}
	return decodeFragment(body)
}

// ListFragments returns fragments in insertion order.
func (s *SQLiteGrammarStore) ListFragments(ctx context.Context, class fragment.Class) ([]*fragment.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUnlocked(ctx, class)
}

func (s *SQLiteGrammarStore) listUnlocked(ctx context.Context, class fragment.Class) ([]*fragment.Fragment, error) {
	query := `SELECT body FROM fragments ORDER BY rowid`
	var args []any
	if class != "" {
		query = `SELECT body FROM fragments WHERE class = ? ORDER BY rowid`
		args = append(args, string(class))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()

	var out []*fragment.Fragment
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		f, err := decodeFragment(body)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFragment removes a fragment. Deleting an absent ID is a no-op.
func (s *SQLiteGrammarStore) DeleteFragment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM fragments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete fragment %s: %w", id, err)
	}
	return nil
}

// AddConcept records a concept edge, rejecting edges that would close a cycle.
func (s *SQLiteGrammarStore) AddConcept(ctx context.Context, edge ConceptEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges, err := s.conceptsUnlocked(ctx)
	if err != nil {
		return err
	}
	if _, err := buildOntology(append(edges, edge)); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO concepts (concept, parent) VALUES (?, ?)`, edge.Concept, edge.Parent); err != nil {
		return fmt.Errorf("failed to insert concept %s: %w", edge.Concept, err)
	}
	return nil
}

// Ontology builds the concept hierarchy from the stored edges.
func (s *SQLiteGrammarStore) Ontology(ctx context.Context) (*fragment.Ontology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges, err := s.conceptsUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	return buildOntology(edges)
}

func (s *SQLiteGrammarStore) conceptsUnlocked(ctx context.Context) ([]ConceptEdge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT concept, parent FROM concepts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}
	defer rows.Close()

	var edges []ConceptEdge
	for rows.Next() {
		var e ConceptEdge
		if err := rows.Scan(&e.Concept, &e.Parent); err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// IsDirty reports whether fragments changed since the last Sync.
func (s *SQLiteGrammarStore) IsDirty(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dirty_fragments`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count dirty fragments: %w", err)
	}
	return count > 0, nil
}

// Sync exports all fragments to fragments.jsonl and clears dirty flags.
func (s *SQLiteGrammarStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fragments, err := s.listUnlocked(ctx, "")
	if err != nil {
		return err
	}

	f, err := os.Create(s.fragmentsFile)
	if err != nil {
		return fmt.Errorf("failed to create fragments file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, frag := range fragments {
		if err := encoder.Encode(frag); err != nil {
			return fmt.Errorf("failed to encode fragment: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM dirty_fragments`); err != nil {
		return fmt.Errorf("failed to clear dirty flags: %w", err)
	}
	return nil
}

// ImportJSONL loads fragments from a JSONL file. A missing file is not an error.
func (s *SQLiteGrammarStore) ImportJSONL(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frag, err := decodeFragment(string(line))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if err := frag.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if _, err := s.addFragmentUnlocked(ctx, frag); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteGrammarStore) Path() string {
	return s.dbPath
}

// Close syncs and closes the store.
func (s *SQLiteGrammarStore) Close() error {
	if err := s.Sync(context.Background()); err != nil {
		// Log but don't fail on sync error during close
		fmt.Fprintf(os.Stderr, "warning: failed to sync during close: %v\n", err)
	}
	return s.db.Close()
}

func decodeFragment(body string) (*fragment.Fragment, error) {
	var f fragment.Fragment
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		return nil, fmt.Errorf("failed to decode fragment: %w", err)
	}
	return &f, nil
}

func computeContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
