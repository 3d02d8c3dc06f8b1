package attendance

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Repository persists attendance records.
type Repository interface {
	// Recent returns the newest record of student for scheduleID at or after
	// since, or nil.
	Recent(ctx context.Context, studentID, scheduleID string, since time.Time) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	SetVerification(ctx context.Context, id string, v Verification) error
	List(ctx context.Context, f ListFilter) ([]Record, error)
}

func prepare(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.When.IsZero() {
		rec.When = time.Now()
	}
	rec.When = rec.When.UTC()
	if rec.Status == "" {
		rec.Status = Present
	}
	if rec.Verification == "" {
		rec.Verification = Pending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

// MemoryRepository keeps records in process.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Recent(_ context.Context, studentID, scheduleID string, since time.Time) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *Record
	for i := range r.records {
		rec := r.records[i]
		if rec.StudentID != studentID || rec.ScheduleID != scheduleID || rec.When.Before(since) {
			continue
		}
		if found == nil || rec.When.After(found.When) {
			found = &rec
		}
	}
	return found, nil
}

func (r *MemoryRepository) Insert(_ context.Context, rec Record) (Record, error) {
	rec = prepare(rec)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return rec, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (r *MemoryRepository) SetVerification(_ context.Context, id string, v Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].Verification = v
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, f ListFilter) ([]Record, error) {
	f = f.normalize()
	r.mu.RLock()
	var out []Record
	for _, rec := range r.records {
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.ScheduleID != "" && rec.ScheduleID != f.ScheduleID {
			continue
		}
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].When.After(out[j].When) })
	if f.Offset >= len(out) {
		return []Record{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// SQLRepository persists records in the attendance_records table.
type SQLRepository struct {
	db *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const recordColumns = `id, student_id, schedule_id, occurred_at, status, verification, created_at`

func (r *SQLRepository) Recent(ctx context.Context, studentID, scheduleID string, since time.Time) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE student_id = ? AND schedule_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC
		LIMIT 1
	`), studentID, scheduleID, since.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "recent attendance record")
	}
	return &rec, nil
}

func (r *SQLRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec)
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.StudentID, rec.ScheduleID, rec.When, string(rec.Status), string(rec.Verification), rec.CreatedAt)
	if err != nil {
		return Record{}, errors.Wrap(err, "insert attendance record")
	}
	return rec, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`SELECT `+recordColumns+` FROM attendance_records WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, errors.Wrap(err, "get attendance record")
}

func (r *SQLRepository) SetVerification(ctx context.Context, id string, v Verification) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE attendance_records SET verification = ? WHERE id = ?`), string(v), id)
	if err != nil {
		return errors.Wrap(err, "update verification")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context, f ListFilter) ([]Record, error) {
	f = f.normalize()
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	var (
		clauses []string
		args    []any
	)
	if f.StudentID != "" {
		clauses = append(clauses, "student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.ScheduleID != "" {
		clauses = append(clauses, "schedule_id = ?")
		args = append(args, f.ScheduleID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	records := []Record{}
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "list attendance records")
	}
	return records, nil
}
