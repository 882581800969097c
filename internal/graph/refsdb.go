package graph

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/classnav/internal/refsvtab"
)

var dbSeq atomic.Uint64

// refsDB is the temp-file SQLite sidecar behind QueryRefs.
type refsDB struct {
	db   *sql.DB
	path string // temp file, removed on Close
	id   string // registry key for the class_refs module
}

// InitRefsDB opens the SQLite sidecar and declares the class_refs virtual
// table. Safe to call more than once.
func (s *MemoryStore) InitRefsDB() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs.db != nil {
		return nil
	}

	mod, err := refsvtab.Register()
	if err != nil {
		return err
	}

	// A temp file, not :memory:, because the vtab's Filter runs on a second
	// pool connection that must see the same tables.
	tmpFile, err := os.CreateTemp("", "classnav-refs-*.db")
	if err != nil {
		return fmt.Errorf("create temp refs db: %w", err)
	}
	path := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = os.Remove(path) // cleanup temp file
		return fmt.Errorf("open refs db: %w", err)
	}
	// One connection for the outer query, one for vtab Filter callbacks.
	db.SetMaxOpenConns(2)

	fail := func(err error) error {
		_ = db.Close()      // ignore close error
		_ = os.Remove(path) // cleanup temp file
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fail(fmt.Errorf("set WAL mode on refs db: %w", err))
	}
	if _, err := db.Exec(refsvtab.Schema); err != nil {
		return fail(fmt.Errorf("create refs tables: %w", err))
	}

	id := fmt.Sprintf("refs_%d_%d", os.Getpid(), dbSeq.Add(1))
	mod.RegisterDB(id, db)
	if _, err := db.Exec(fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS class_refs USING %s(%s)", refsvtab.ModuleName, id)); err != nil {
		mod.UnregisterDB(id)
		return fail(fmt.Errorf("create class_refs vtab: %w", err))
	}

	s.refs = refsDB{db: db, path: path, id: id}
	return nil
}

// FlushRefs replaces the sidecar contents with the current index.
func (s *MemoryStore) FlushRefs() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.refs.db == nil {
		return fmt.Errorf("refsDB not initialized: call InitRefsDB first")
	}

	tx, err := s.refs.db.Begin()
	if err != nil {
		return fmt.Errorf("begin refs flush: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore (no-op if committed)

	if _, err := tx.Exec("DELETE FROM class_tokens; DELETE FROM locations;"); err != nil {
		return fmt.Errorf("clear refs tables: %w", err)
	}

	locStmt, err := tx.Prepare("INSERT INTO locations (id, file, location) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare locations insert: %w", err)
	}
	defer func() { _ = locStmt.Close() }() // safe to ignore

	live := make(map[uint32]bool)
	for _, bm := range s.tokenLocs {
		it := bm.Iterator()
		for it.HasNext() {
			live[it.Next()] = true
		}
	}
	for id, loc := range s.locations {
		if !live[uint32(id)] {
			continue
		}
		if _, err := locStmt.Exec(id, loc.File, loc.String()); err != nil {
			return fmt.Errorf("insert location %s: %w", loc, err)
		}
	}

	tokStmt, err := tx.Prepare("INSERT INTO class_tokens (token, bitmap) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare class_tokens insert: %w", err)
	}
	defer func() { _ = tokStmt.Close() }() // safe to ignore

	var buf bytes.Buffer
	for token, bm := range s.tokenLocs {
		buf.Reset()
		if _, err := bm.WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize bitmap for %s: %w", token, err)
		}
		if _, err := tokStmt.Exec(token, buf.Bytes()); err != nil {
			return fmt.Errorf("insert token %s: %w", token, err)
		}
	}
	return tx.Commit()
}

// QueryRefs runs SQL against the sidecar, which includes class_refs.
func (s *MemoryStore) QueryRefs(query string, args ...any) (*sql.Rows, error) {
	s.mu.RLock()
	db := s.refs.db
	s.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("refsDB not initialized: call InitRefsDB first")
	}
	return db.Query(query, args...)
}

// Close closes the sidecar and removes its files.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.refs
	if r.db == nil {
		return nil
	}
	s.refs = refsDB{}

	if mod, err := refsvtab.Register(); err == nil && mod != nil {
		mod.UnregisterDB(r.id)
	}
	err := r.db.Close()
	_ = os.Remove(r.path) // best-effort cleanup
	_ = os.Remove(r.path + "-wal")
	_ = os.Remove(r.path + "-shm")
	return err
}
