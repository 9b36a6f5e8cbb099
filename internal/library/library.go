// Package library provides a SQLite catalog of saved macros.
//
// Each entry stores the full macro document alongside summary columns
// probed from it, so listing never decodes documents.
package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	_ "modernc.org/sqlite"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when no entry matches an id.
	ErrNotFound = errors.New("macro not found")

	// ErrAmbiguous is returned when an id prefix matches several entries.
	ErrAmbiguous = errors.New("ambiguous macro id")
)

// Entry summarizes one stored macro.
type Entry struct {
	ID         string
	Name       string
	Profile    string
	Created    time.Time
	EventCount int
	Size       int
}

// Macro is a stored macro with its decoded events.
type Macro struct {
	Entry
	Events   []macro.Event
	Metadata macro.Metadata
	Document []byte
}

// Library persists macros in SQLite.
type Library struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithNow sets the clock used when a macro has no creation time.
func WithNow(now func() time.Time) Option {
	return func(l *Library) {
		l.now = now
	}
}

// Open opens or creates the library at path.
func Open(path string, opts ...Option) (*Library, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("library path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library directory: %w", err)
		}
	}

	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	l := &Library{db: db, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close closes the database handle.
func (l *Library) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Add stores a macro and returns its entry.
func (l *Library) Add(ctx context.Context, events []macro.Event, meta macro.Metadata) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if len(events) == 0 {
		return Entry{}, macro.ErrEmptySequence
	}
	if meta.Created.IsZero() {
		meta.Created = l.now()
	}
	meta.Created = meta.Created.Truncate(time.Second)
	meta.EventCount = len(events)

	doc, err := macro.Marshal(events, meta)
	if err != nil {
		return Entry{}, err
	}
	return l.insert(ctx, doc, meta.Created)
}

// Import stores an existing macro document as is. The document must
// decode as a macro.
func (l *Library) Import(ctx context.Context, doc []byte) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	_, meta, err := macro.Unmarshal(doc)
	if err != nil {
		return Entry{}, err
	}
	created := meta.Created
	if created.IsZero() {
		created = l.now().Truncate(time.Second)
	}
	return l.insert(ctx, doc, created)
}

func (l *Library) insert(ctx context.Context, doc []byte, created time.Time) (Entry, error) {
	e := summarize(doc)
	e.ID = uuid.NewString()
	e.Created = created

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO macros (id, name, profile, created_utc, event_count, document)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Profile, created.UTC().UnixMilli(), e.EventCount, string(doc),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert macro: %w", err)
	}
	return e, nil
}

// summarize probes the summary columns from a macro document.
func summarize(doc []byte) Entry {
	return Entry{
		Name:       gjson.GetBytes(doc, "name").String(),
		Profile:    gjson.GetBytes(doc, "game").String(),
		EventCount: int(gjson.GetBytes(doc, "actions.#").Int()),
		Size:       len(doc),
	}
}

// Get returns the macro with the given id or unique id prefix.
func (l *Library) Get(ctx context.Context, ref string) (Macro, error) {
	id, err := l.Resolve(ctx, ref)
	if err != nil {
		return Macro{}, err
	}

	var doc string
	var created int64
	err = l.db.QueryRowContext(ctx,
		`SELECT document, created_utc FROM macros WHERE id = ?`, id,
	).Scan(&doc, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Macro{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return Macro{}, fmt.Errorf("get macro: %w", err)
	}

	events, meta, err := macro.Unmarshal([]byte(doc))
	if err != nil {
		return Macro{}, err
	}

	e := summarize([]byte(doc))
	e.ID = id
	e.Created = time.UnixMilli(created).Local()
	return Macro{Entry: e, Events: events, Metadata: meta, Document: []byte(doc)}, nil
}

// List returns every entry, newest first.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, name, profile, created_utc, event_count, length(CAST(document AS BLOB))
		 FROM macros ORDER BY created_utc DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Name, &e.Profile, &created, &e.EventCount, &e.Size); err != nil {
			return nil, fmt.Errorf("scan macro: %w", err)
		}
		e.Created = time.UnixMilli(created).Local()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	return entries, nil
}

// Rename changes a macro's name in both the summary and the stored
// document.
func (l *Library) Rename(ctx context.Context, ref, name string) error {
	id, err := l.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc string
	if err := tx.QueryRowContext(ctx, `SELECT document FROM macros WHERE id = ?`, id).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return fmt.Errorf("get macro: %w", err)
	}

	patched, err := sjson.Set(doc, "name", name)
	if err != nil {
		return fmt.Errorf("patch document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE macros SET name = ?, document = ? WHERE id = ?`, name, patched, id,
	); err != nil {
		return fmt.Errorf("rename macro: %w", err)
	}
	return tx.Commit()
}

// Delete removes a macro.
func (l *Library) Delete(ctx context.Context, ref string) error {
	id, err := l.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	res, err := l.db.ExecContext(ctx, `DELETE FROM macros WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete macro: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return nil
}

// Resolve expands an id or unique id prefix to a full id.
func (l *Library) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id FROM macros WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2`,
		ref, len(ref), ref)
	if err != nil {
		return "", fmt.Errorf("resolve macro: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("resolve macro: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve macro: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, ref)
	}
}
