package schedule

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Repository stores timetable entries, newest first.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Prepend(ctx context.Context, item Item) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps entries in process.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []Item
}

func NewMemoryRepository(items []Item) *MemoryRepository {
	return &MemoryRepository{items: append([]Item(nil), items...)}
}

func (r *MemoryRepository) List(context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Item(nil), r.items...), nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}

func (r *MemoryRepository) Prepend(_ context.Context, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append([]Item{item}, r.items...)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, it := range r.items {
		if it.ID == id {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// SQLRepository persists entries in the schedule_items table. Ordering uses
// the position column; prepending takes the current minimum minus one.
type SQLRepository struct {
	db *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const itemColumns = `id, subject_id, instructor_id, session_type, day, start_time, end_time, room, section_number`

// Seed inserts items when the table is empty.
func (r *SQLRepository) Seed(ctx context.Context, items []Item) error {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM schedule_items`); err != nil {
		return errors.Wrap(err, "count schedule items")
	}
	if n > 0 {
		return nil
	}
	for i, it := range items {
		if err := r.insert(ctx, it, int64(i)); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context) ([]Item, error) {
	var items []Item
	err := r.db.SelectContext(ctx, &items, `SELECT `+itemColumns+` FROM schedule_items ORDER BY position ASC`)
	return items, errors.Wrap(err, "list schedule items")
}

func (r *SQLRepository) Get(ctx context.Context, id string) (Item, error) {
	var it Item
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`SELECT `+itemColumns+` FROM schedule_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, errors.Wrap(err, "get schedule item")
}

func (r *SQLRepository) Prepend(ctx context.Context, item Item) error {
	var minPos sql.NullInt64
	if err := r.db.GetContext(ctx, &minPos, `SELECT MIN(position) FROM schedule_items`); err != nil {
		return errors.Wrap(err, "min position")
	}
	pos := int64(0)
	if minPos.Valid {
		pos = minPos.Int64 - 1
	}
	return r.insert(ctx, item, pos)
}

func (r *SQLRepository) insert(ctx context.Context, it Item, pos int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO schedule_items (`+itemColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), it.ID, it.SubjectID, it.InstructorID, string(it.Type), string(it.Day), it.StartTime, it.EndTime, it.Room, it.SectionNumber, pos)
	return errors.Wrap(err, "insert schedule item")
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM schedule_items WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "delete schedule item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
