package migration

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID             string     `json:"id" yaml:"id"`
	Operation      Operation  `json:"operation" yaml:"operation"`
	ArtefactType   string     `json:"artefact_type" yaml:"artefact_type"`
	SourceOwnerID  string     `json:"source_owner_id" yaml:"source_owner_id"`
	Status         RunStatus  `json:"status" yaml:"status"`
	Percent        int        `json:"progress_percent" yaml:"progress_percent"`
	UnitsCompleted int        `json:"units_completed" yaml:"units_completed"`
	UnitsTotal     int        `json:"units_total" yaml:"units_total"`
	Message        string     `json:"message,omitempty" yaml:"message,omitempty"`
	Error          string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at" yaml:"updated_at"`
}

const runColumns = `id, operation, artefact_type, source_owner_id, status,
	progress_percent, units_completed, units_total, message, error,
	created_at, completed_at, updated_at`

// Ledger persists migration runs in the migration_runs table.
type Ledger struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewLedger creates a ledger over db.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, log: logger.ComponentLogger("migration.ledger")}
}

// Begin records a new running run for req.
func (l *Ledger) Begin(ctx context.Context, req Request, artefactType string) (*RunRecord, error) {
	now := time.Now().UTC()
	rec := &RunRecord{
		ID:            uuid.NewString(),
		Operation:     req.Operation,
		ArtefactType:  artefactType,
		SourceOwnerID: req.Source.ID,
		Status:        RunRunning,
		UnitsTotal:    NewPlan(req).Total(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts rec.
func (l *Ledger) Create(ctx context.Context, rec *RunRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO migration_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Operation, rec.ArtefactType, rec.SourceOwnerID, rec.Status,
		rec.Percent, rec.UnitsCompleted, rec.UnitsTotal,
		nullString(rec.Message), nullString(rec.Error),
		rec.CreatedAt, rec.CompletedAt, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create run %s", rec.ID)
	}
	return nil
}

// Update writes rec's mutable fields.
func (l *Ledger) Update(ctx context.Context, rec *RunRecord) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE migration_runs
		SET status = ?,
		    progress_percent = ?,
		    units_completed = ?,
		    units_total = ?,
		    message = ?,
		    error = ?,
		    completed_at = ?,
		    updated_at = ?
		WHERE id = ?`,
		rec.Status, rec.Percent, rec.UnitsCompleted, rec.UnitsTotal,
		nullString(rec.Message), nullString(rec.Error),
		rec.CompletedAt, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update run %s", rec.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("run %s", rec.ID)
	}
	return nil
}

// Get loads one run.
func (l *Ledger) Get(ctx context.Context, id string) (*RunRecord, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM migration_runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get run %s", id)
	}
	return rec, nil
}

// List returns the most recent runs first. limit <= 0 means no limit.
func (l *Ledger) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs ORDER BY created_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate runs")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var (
		rec              RunRecord
		message, errText sql.NullString
		completedAt      sql.NullTime
	)
	err := s.Scan(
		&rec.ID, &rec.Operation, &rec.ArtefactType, &rec.SourceOwnerID, &rec.Status,
		&rec.Percent, &rec.UnitsCompleted, &rec.UnitsTotal, &message, &errText,
		&rec.CreatedAt, &completedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Message = message.String
	rec.Error = errText.String
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// LedgerObserver mirrors engine events into a ledger row. Write failures are
// logged; they never affect the run.
type LedgerObserver struct {
	ledger *Ledger
	rec    *RunRecord
	ctx    context.Context
}

// NewLedgerObserver keeps rec current in ledger. ctx bounds the writes.
func NewLedgerObserver(ctx context.Context, ledger *Ledger, rec *RunRecord) *LedgerObserver {
	return &LedgerObserver{ledger: ledger, rec: rec, ctx: context.WithoutCancel(ctx)}
}

// Record returns the run as last written.
func (o *LedgerObserver) Record() RunRecord {
	return *o.rec
}

func (o *LedgerObserver) Observe(ev Event) {
	now := time.Now().UTC()
	o.rec.Percent = ev.Percent
	o.rec.UnitsCompleted = ev.Completed
	o.rec.UnitsTotal = ev.Total
	o.rec.Message = ev.Message
	o.rec.UpdatedAt = now

	switch ev.Kind {
	case EventCompleted:
		o.rec.Status = RunCompleted
	case EventFailed:
		o.rec.Status = RunFailed
	case EventCancelled:
		o.rec.Status = RunCancelled
	default:
		o.rec.Status = RunRunning
	}
	if ev.Err != nil {
		o.rec.Error = ev.Err.Error()
	}
	if ev.Kind.Terminal() {
		o.rec.CompletedAt = &now
	}

	if err := o.ledger.Update(o.ctx, o.rec); err != nil {
		o.ledger.log.Warnw("Failed to record run progress",
			logger.FieldRunID, o.rec.ID,
			logger.FieldStatus, o.rec.Status,
			logger.FieldError, err,
		)
	}
}
