// Package refsvtab exposes the class occurrence index as the class_refs
// SQLite virtual table. Each sidecar database stores one roaring bitmap of
// location IDs per class token; the table expands them into rows.
package refsvtab

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"modernc.org/sqlite/vtab"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE ... USING.
const ModuleName = "class_refs"

// Schema creates the sidecar tables the virtual table reads from.
const Schema = `
CREATE TABLE IF NOT EXISTS class_tokens (
	token TEXT PRIMARY KEY,
	bitmap BLOB
);
CREATE TABLE IF NOT EXISTS locations (
	id INTEGER PRIMARY KEY,
	file TEXT NOT NULL,
	location TEXT UNIQUE NOT NULL
);
`

var (
	once      sync.Once
	singleton *Module
	initErr   error
)

// Module implements vtab.Module. modernc.org/sqlite registers modules per
// driver, not per database, so there is exactly one and each sidecar
// registers its *sql.DB under an ID passed as the table argument.
type Module struct {
	mu  sync.RWMutex
	dbs map[string]*sql.DB
}

// Register installs the class_refs module. Later calls return the same
// module.
func Register() (*Module, error) {
	once.Do(func() {
		singleton = &Module{dbs: make(map[string]*sql.DB)}
		if err := vtab.RegisterModule(nil, ModuleName, singleton); err != nil {
			initErr = fmt.Errorf("refsvtab: register module: %w", err)
			singleton = nil
		}
	})
	return singleton, initErr
}

// RegisterDB makes db reachable as USING class_refs(id).
func (m *Module) RegisterDB(id string, db *sql.DB) {
	m.mu.Lock()
	m.dbs[id] = db
	m.mu.Unlock()
}

// UnregisterDB forgets id. Call it before closing the database.
func (m *Module) UnregisterDB(id string) {
	m.mu.Lock()
	delete(m.dbs, id)
	m.mu.Unlock()
}

// Create receives argv as module, database, table, then the arguments
// between the parentheses.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 4 {
		return nil, fmt.Errorf("%s: missing DB ID argument (expected USING %s(id))", ModuleName, ModuleName)
	}
	id := args[3]

	m.mu.RLock()
	db, ok := m.dbs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: unknown DB ID %q", ModuleName, id)
	}

	if err := ctx.Declare("CREATE TABLE x(token TEXT, location TEXT, file TEXT)"); err != nil {
		return nil, err
	}
	return &table{db: db}, nil
}

func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Create(ctx, args)
}

const (
	scanAll = iota
	scanEqual
	scanLike
	scanGlob
)

type table struct {
	db *sql.DB
}

// BestIndex pushes token constraints down to the class_tokens primary key.
func (t *table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable || c.Column != 0 {
			continue
		}
		switch c.Op {
		case vtab.OpEQ:
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = scanEqual
			info.EstimatedCost = 1
			info.EstimatedRows = 10
			return nil
		case vtab.OpLIKE, vtab.OpGLOB:
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = scanLike
			if c.Op == vtab.OpGLOB {
				info.IdxNum = scanGlob
			}
			info.EstimatedCost = 100
			info.EstimatedRows = 100
			return nil
		}
	}
	info.IdxNum = scanAll
	info.EstimatedCost = 1e6
	info.EstimatedRows = 1e6
	return nil
}

func (t *table) Open() (vtab.Cursor, error) {
	return &cursor{db: t.db}, nil
}

func (t *table) Disconnect() error { return nil }
func (t *table) Destroy() error    { return nil }

type row struct {
	token, location, file string
}

type cursor struct {
	db   *sql.DB
	rows []row
	pos  int
}

func (c *cursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows = c.rows[:0]
	c.pos = 0
	if c.db == nil {
		return nil
	}

	where, op := "", ""
	switch idxNum {
	case scanEqual:
		op = "="
	case scanLike:
		op = "LIKE"
	case scanGlob:
		op = "GLOB"
	}
	var args []any
	if op != "" {
		pattern, ok := vals[0].(string)
		if !ok {
			return nil
		}
		where = " WHERE token " + op + " ?"
		args = append(args, pattern)
	}
	return c.load(where, args...)
}

// load materializes the matching (token, bitmap) pairs and closes the scan
// before expanding them: the outer query holds one pool connection and the
// expansion needs the other.
func (c *cursor) load(where string, args ...any) error {
	type entry struct {
		token string
		blob  []byte
	}

	rs, err := c.db.Query("SELECT token, bitmap FROM class_tokens"+where, args...)
	if err != nil {
		return fmt.Errorf("refsvtab: scan class_tokens: %w", err)
	}
	var entries []entry
	for rs.Next() {
		var e entry
		if err := rs.Scan(&e.token, &e.blob); err != nil {
			continue // one bad row does not invalidate the rest
		}
		entries = append(entries, e)
	}
	if err := rs.Err(); err != nil {
		_ = rs.Close() // safe to ignore
		return fmt.Errorf("refsvtab: scan class_tokens rows: %w", err)
	}
	_ = rs.Close() // safe to ignore

	for _, e := range entries {
		if err := c.expand(e.token, e.blob); err != nil {
			return err
		}
	}
	return nil
}

// expand resolves a token's bitmap of location IDs into rows.
func (c *cursor) expand(token string, blob []byte) error {
	rb := roaring.New()
	if err := rb.UnmarshalBinary(blob); err != nil {
		return fmt.Errorf("refsvtab: unmarshal bitmap for %q: %w", token, err)
	}
	if rb.IsEmpty() {
		return nil
	}

	ids := rb.ToArray()
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("SELECT location, file FROM locations WHERE id IN (%s) ORDER BY id",
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))
	rs, err := c.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("refsvtab: resolve locations: %w", err)
	}
	defer func() { _ = rs.Close() }() // safe to ignore

	for rs.Next() {
		r := row{token: token}
		if err := rs.Scan(&r.location, &r.file); err != nil {
			continue
		}
		c.rows = append(c.rows, r)
	}
	return rs.Err()
}

func (c *cursor) Next() error {
	c.pos++
	return nil
}

func (c *cursor) Eof() bool {
	return c.pos >= len(c.rows)
}

func (c *cursor) Column(col int) (vtab.Value, error) {
	if c.pos >= len(c.rows) {
		return nil, nil
	}
	r := c.rows[c.pos]
	switch col {
	case 0:
		return r.token, nil
	case 1:
		return r.location, nil
	case 2:
		return r.file, nil
	default:
		return nil, nil
	}
}

func (c *cursor) Rowid() (int64, error) {
	return int64(c.pos), nil
}

func (c *cursor) Close() error {
	c.rows = nil
	return nil
}
