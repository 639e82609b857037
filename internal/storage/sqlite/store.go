package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"taskcal/internal/models"
)

// ErrNotFound is returned when the referenced task id does not exist.
var ErrNotFound = errors.New("task not found")

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// TaskFilter narrows ListTasks results. Empty fields impose no constraint;
// all supplied fields must match (AND semantics). Status recognizes exactly
// "completed" and "incomplete"; any other value disables the status filter.
type TaskFilter struct {
	Category string
	Priority string
	Status   string
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            priority TEXT NOT NULL DEFAULT '',
            start_date TEXT NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            google_event_id TEXT,
            is_completed INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(is_completed);`,
		`CREATE TRIGGER IF NOT EXISTS trg_tasks_updated
            AFTER UPDATE ON tasks
            FOR EACH ROW BEGIN
                UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, title, description, category, priority, start_date, start_time, end_time, google_event_id, is_completed, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var eventID sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority,
		&t.StartDate, &t.StartTime, &t.EndTime, &eventID, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.GoogleEventID = eventID.String
	return t, nil
}

// CreateTask inserts a new task and returns it with the generated id.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(title, description, category, priority, start_date, start_time, end_time) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(t.Title), t.Description, t.Category, t.Priority, t.StartDate, t.StartTime, t.EndTime)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks matching the filter, in insertion order.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conds []string
	var args []any

	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, f.Priority)
	}
	switch f.Status {
	case "completed":
		conds = append(conds, "is_completed = 1")
	case "incomplete":
		conds = append(conds, "is_completed = 0")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask overwrites all editable fields of an existing task.
func (s *Store) UpdateTask(ctx context.Context, id int64, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, category = ?, priority = ?, start_date = ?, start_time = ?, end_time = ? WHERE id = ?`,
		strings.TrimSpace(t.Title), t.Description, t.Category, t.Priority, t.StartDate, t.StartTime, t.EndTime, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := checkRowsAffected(res); err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, id)
}

// SetCompleted marks a task completed. Calling it on an already completed
// task is a no-op that still succeeds.
func (s *Store) SetCompleted(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET is_completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return checkRowsAffected(res)
}

// SetEventID records the external calendar event identifier on a task after a
// successful sync.
func (s *Store) SetEventID(ctx context.Context, id int64, eventID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET google_event_id = ? WHERE id = ?`, eventID, id)
	if err != nil {
		return fmt.Errorf("set event id: %w", err)
	}
	return checkRowsAffected(res)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return checkRowsAffected(res)
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
