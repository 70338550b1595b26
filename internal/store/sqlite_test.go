package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSQLiteGrammarStore(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatalf("NewSQLiteGrammarStore() error = %v", err)
	}
	defer s.Close()

	dbPath := filepath.Join(tmpDir, ".tcg", "grammar.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("grammar.db was not created")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", s.Path(), dbPath)
	}
}

func TestSQLiteGrammarStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFragment(ctx, npFragment("woman", "WOMAN", "woman")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddConcept(ctx, ConceptEdge{Concept: "WOMAN", Parent: "HUMAN"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if f, _ := reopened.GetFragment(ctx, "woman"); f == nil {
		t.Error("fragment lost across reopen")
	}
	if o, _ := reopened.Ontology(ctx); !o.IsA("WOMAN", "HUMAN") {
		t.Error("concepts lost across reopen")
	}
}

func TestSQLiteGrammarStore_SyncAndAutoImport(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	s.AddFragment(ctx, clauseFragment("runs"))
	s.AddFragment(ctx, npFragment("ball", "BALL", "ball"))

	dirty, err := s.IsDirty(ctx)
	if err != nil || !dirty {
		t.Fatalf("IsDirty() = %v, %v; want true", dirty, err)
	}
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if dirty, _ := s.IsDirty(ctx); dirty {
		t.Error("Sync() left dirty flags behind")
	}
	s.Close()

	// A fresh database next to the exported JSONL picks the fragments up.
	if err := os.Remove(filepath.Join(tmpDir, ".tcg", "grammar.db")); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(tmpDir, ".tcg", "grammar.db-wal"))
	os.Remove(filepath.Join(tmpDir, ".tcg", "grammar.db-shm"))

	restored, err := NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer restored.Close()

	all, err := restored.ListFragments(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "runs" || all[1].ID != "ball" {
		t.Errorf("auto-import restored %d fragments in wrong order", len(all))
	}
}

func TestSQLiteGrammarStore_ImportJSONLRejectsGarbage(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	path := filepath.Join(tmpDir, "bad.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.ImportJSONL(context.Background(), path); err == nil {
		t.Error("ImportJSONL() accepted malformed input")
	}
	if err := s.ImportJSONL(context.Background(), filepath.Join(tmpDir, "missing.jsonl")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}
