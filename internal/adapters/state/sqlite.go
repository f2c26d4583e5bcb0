package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/fsutil"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements the persistence port on SQLite. The record is
// stored as one JSON document per project; topic, mode, status and the
// timestamps are duplicated into columns for filtering.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	opts   options
	mu     sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if err := fsutil.EnsureParentDir(dbPath); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db, opts: applyOptions(opts)}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// CreateProject inserts a new record.
func (s *SQLiteStore) CreateProject(ctx context.Context, state *core.ContentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, topic, mode, status, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.ProjectID, state.Topic, string(state.Mode), string(state.Status), string(doc),
		state.CreatedAt.UnixNano(), state.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return core.ErrConflict("PROJECT_EXISTS", "project already exists: "+state.ProjectID)
		}
		return core.ErrPersistence("create project", err)
	}
	return nil
}

// GetState loads the record, or nil when absent.
func (s *SQLiteStore) GetState(ctx context.Context, projectID string) (*core.ContentState, error) {
	st, err := s.load(ctx, s.db, projectID)
	if err != nil && core.IsCategory(err, core.ErrCatNotFound) {
		return nil, nil
	}
	return st, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, projectID string) (*core.ContentState, error) {
	var doc string
	err := q.QueryRowContext(ctx, "SELECT state FROM projects WHERE id = ?", projectID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound("project", projectID)
	}
	if err != nil {
		return nil, core.ErrPersistence("load project", err)
	}
	var st core.ContentState
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, core.ErrState("STATE_CORRUPTED", "decoding project "+projectID).WithCause(err)
	}
	return &st, nil
}

func (s *SQLiteStore) save(ctx context.Context, tx *sql.Tx, st *core.ContentState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE projects SET topic = ?, mode = ?, status = ?, state = ?, updated_at = ?
		WHERE id = ?`,
		st.Topic, string(st.Mode), string(st.Status), string(doc), st.UpdatedAt.UnixNano(), st.ProjectID,
	)
	if err != nil {
		return core.ErrPersistence("update project", err)
	}
	return nil
}

// inTx runs fn against the current record inside a transaction and
// stores whatever fn leaves in it.
func (s *SQLiteStore) inTx(ctx context.Context, projectID string, fn func(tx *sql.Tx, st *core.ContentState) (*core.ContentState, error)) (*core.ContentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.ErrPersistence("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	st, err := s.load(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	next, err := fn(tx, st)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, core.ErrPersistence("commit", err)
	}
	return next, nil
}

// UpdateState merges update into the record.
func (s *SQLiteStore) UpdateState(ctx context.Context, projectID string, update core.StateUpdate) (*core.ContentState, error) {
	return s.inTx(ctx, projectID, func(_ *sql.Tx, st *core.ContentState) (*core.ContentState, error) {
		update.Apply(st, s.opts.now())
		return st, nil
	})
}

// Replace overwrites the record.
func (s *SQLiteStore) Replace(ctx context.Context, state *core.ContentState) error {
	_, err := s.inTx(ctx, state.ProjectID, func(_ *sql.Tx, live *core.ContentState) (*core.ContentState, error) {
		return replaceState(live, state, s.opts.now()), nil
	})
	return err
}

// DeleteProject removes the record; checkpoints and feedback cascade.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", projectID)
	if err != nil {
		return core.ErrPersistence("delete project", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound("project", projectID)
	}
	return nil
}

// ListProjects returns matching records newest first.
func (s *SQLiteStore) ListProjects(ctx context.Context, filter core.ProjectFilter) ([]*core.ContentState, error) {
	query := "SELECT state FROM projects WHERE 1=1"
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		query += " AND mode = ?"
		args = append(args, string(filter.Mode))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return s.queryStates(ctx, query, args...)
}

// ActiveProjects returns records that have not reached a terminal status.
func (s *SQLiteStore) ActiveProjects(ctx context.Context) ([]*core.ContentState, error) {
	return s.queryStates(ctx,
		"SELECT state FROM projects WHERE status NOT IN (?, ?) ORDER BY created_at DESC, id DESC",
		string(core.StatusCompleted), string(core.StatusFailed))
}

func (s *SQLiteStore) queryStates(ctx context.Context, query string, args ...any) ([]*core.ContentState, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.ErrPersistence("list projects", err)
	}
	defer rows.Close()

	out := make([]*core.ContentState, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, core.ErrPersistence("scan project", err)
		}
		var st core.ContentState
		if err := json.Unmarshal([]byte(doc), &st); err != nil {
			return nil, core.ErrState("STATE_CORRUPTED", "decoding project row").WithCause(err)
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrPersistence("list projects", err)
	}
	return out, nil
}

// SaveCheckpoint snapshots the record.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, projectID, name string) (string, error) {
	id := s.opts.newID()
	_, err := s.inTx(ctx, projectID, func(tx *sql.Tx, st *core.ContentState) (*core.ContentState, error) {
		cp := newCheckpoint(st, id, name, s.opts.now())
		snapshot, err := json.Marshal(cp.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("marshaling snapshot: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkpoints (id, project_id, thread_id, name, snapshot, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			cp.ID, cp.ProjectID, cp.ThreadID, cp.Name, string(snapshot), cp.CreatedAt.UnixNano(),
		)
		if err != nil {
			return nil, core.ErrPersistence("insert checkpoint", err)
		}
		return st, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RestoreCheckpoint overwrites the record with a snapshot.
func (s *SQLiteStore) RestoreCheckpoint(ctx context.Context, projectID, checkpointID string) (*core.ContentState, error) {
	return s.inTx(ctx, projectID, func(tx *sql.Tx, live *core.ContentState) (*core.ContentState, error) {
		var (
			cp       core.Checkpoint
			snapshot string
			created  int64
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, thread_id, name, snapshot, created_at FROM checkpoints
			WHERE id = ? AND project_id = ?`, checkpointID, projectID,
		).Scan(&cp.ID, &cp.ThreadID, &cp.Name, &snapshot, &created)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound("checkpoint", checkpointID)
		}
		if err != nil {
			return nil, core.ErrPersistence("load checkpoint", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &cp.Snapshot); err != nil {
			return nil, core.ErrState("STATE_CORRUPTED", "decoding checkpoint "+checkpointID).WithCause(err)
		}
		cp.ProjectID = projectID
		cp.CreatedAt = time.Unix(0, created).UTC()
		return restoredState(live, cp, s.opts.now()), nil
	})
}

// ListCheckpoints returns up to ten checkpoints, newest first.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, projectID string) ([]core.CheckpointInfo, error) {
	if _, err := s.load(ctx, s.db, projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM checkpoints
		WHERE project_id = ? ORDER BY seq DESC LIMIT ?`, projectID, core.MaxCheckpointHistory)
	if err != nil {
		return nil, core.ErrPersistence("list checkpoints", err)
	}
	defer rows.Close()

	out := make([]core.CheckpointInfo, 0, core.MaxCheckpointHistory)
	for rows.Next() {
		var (
			info    core.CheckpointInfo
			created int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &created); err != nil {
			return nil, core.ErrPersistence("scan checkpoint", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrPersistence("list checkpoints", err)
	}
	return out, nil
}

// SaveHumanFeedback appends feedback and mirrors it on the record.
func (s *SQLiteStore) SaveHumanFeedback(ctx context.Context, projectID, feedback string, action core.FeedbackAction, approved bool) (string, error) {
	action, err := normalizeAction(action)
	if err != nil {
		return "", err
	}
	id := s.opts.newID()
	_, err = s.inTx(ctx, projectID, func(tx *sql.Tx, st *core.ContentState) (*core.ContentState, error) {
		now := s.opts.now()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO human_feedback (id, project_id, feedback, action, approved, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, projectID, feedback, string(action), approved, now.UnixNano(),
		)
		if err != nil {
			return nil, core.ErrPersistence("insert feedback", err)
		}
		st.HumanFeedback = feedback
		st.HumanApproved = approved
		st.Touch(now)
		return st, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
