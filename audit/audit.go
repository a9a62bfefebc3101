// Package audit records moderation decisions to an SQLite database.
//
// The audit log is history for people to read. The bot never reads it back
// to restore state.
package audit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Kinds of audit events.
const (
	AppealSubmitted  = "appeal.submitted"
	AppealAccepted   = "appeal.accepted"
	AppealDenied     = "appeal.denied"
	CommandRelayed   = "erlc.command"
	PermissionDenied = "gate.denial"
)

// Entry is an audit event.
type Entry struct {
	Kind    string
	Actor   string
	Subject string
	Detail  map[string]string
	Time    time.Time
}

// Log is an audit log backed by an SQLite database.
// A nil *Log discards everything recorded to it.
type Log struct {
	db *sqlitex.Pool
}

//go:embed schema.sql
var schemaSQL string

// Init initializes an SQLite DB to hold an audit log.
// It is safe to call on a database which is already initialized.
func Init[DB *sqlitex.Pool | *sqlite.Conn](ctx context.Context, db DB) error {
	var conn *sqlite.Conn
	switch db := any(db).(type) {
	case *sqlite.Conn:
		conn = db
	case *sqlitex.Pool:
		var err error
		conn, err = db.Take(ctx)
		defer db.Put(conn)
		if err != nil {
			return fmt.Errorf("couldn't get conn to initialize audit log: %w", err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schemaSQL, nil); err != nil {
		return fmt.Errorf("couldn't initialize audit schema: %w", err)
	}
	return nil
}

// Open initializes an audit log in db and returns it.
func Open(ctx context.Context, db *sqlitex.Pool) (*Log, error) {
	if err := Init(ctx, db); err != nil {
		return nil, err
	}
	return &Log{db: db}, nil
}

// Record adds an entry to the log.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if l == nil {
		return nil
	}
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get conn to record %s: %w", e.Kind, err)
	}
	const insert = `INSERT INTO audit (kind, actor, subject, detail, time) VALUES (:kind, :actor, :subject, JSONB(CAST(:detail AS TEXT)), :time)`
	st, err := conn.Prepare(insert)
	if err != nil {
		return fmt.Errorf("couldn't prepare statement to record %s: %w", e.Kind, err)
	}
	detail := e.Detail
	if detail == nil {
		detail = map[string]string{}
	}
	d, err := json.Marshal(detail, json.Deterministic(true))
	if err != nil {
		// Should be impossible. Explode loudly.
		go panic(fmt.Errorf("audit: couldn't marshal detail %#v: %w", detail, err))
	}
	st.SetText(":kind", e.Kind)
	st.SetText(":actor", e.Actor)
	st.SetText(":subject", e.Subject)
	st.SetBytes(":detail", d)
	st.SetInt64(":time", e.Time.UnixNano())
	if _, err := st.Step(); err != nil {
		return fmt.Errorf("couldn't insert %s: %w", e.Kind, err)
	}
	return nil
}

// Recent returns up to n of the most recent entries of a kind, newest first.
// If kind is empty, entries of all kinds are returned.
func (l *Log) Recent(ctx context.Context, kind string, n int) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get conn to read audit log: %w", err)
	}
	const sel = `SELECT kind, actor, subject, JSON(detail), time FROM audit WHERE :kind = '' OR kind = :kind ORDER BY time DESC, id DESC LIMIT :n`
	var r []Entry
	opts := sqlitex.ExecOptions{
		Named: map[string]any{
			":kind": kind,
			":n":    n,
		},
		ResultFunc: func(st *sqlite.Stmt) error {
			e := Entry{
				Kind:    st.ColumnText(0),
				Actor:   st.ColumnText(1),
				Subject: st.ColumnText(2),
				Time:    time.Unix(0, st.ColumnInt64(4)),
			}
			if err := json.Unmarshal([]byte(st.ColumnText(3)), &e.Detail); err != nil {
				return fmt.Errorf("couldn't decode detail: %w", err)
			}
			r = append(r, e)
			return nil
		},
	}
	if err := sqlitex.Execute(conn, sel, &opts); err != nil {
		return nil, fmt.Errorf("couldn't read audit log: %w", err)
	}
	return r, nil
}
