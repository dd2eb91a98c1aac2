package mysql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/metrics"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/metrickeys"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

func NewMysqlBackend(host string, port int, user, password, database string, opts ...option) *mysqlBackend {
	options := &options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: true,
	}

	for _, opt := range opts {
		opt(options)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&interpolateParams=true", user, password, host, port, database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}

	b := &mysqlBackend{
		dsn:        dsn,
		db:         db,
		workerName: fmt.Sprintf("worker-%v", uuid.NewString()),
		options:    options,
	}

	if options.ApplyMigrations {
		if err := b.Migrate(); err != nil {
			panic(err)
		}
	}

	return b
}

type mysqlBackend struct {
	dsn        string
	db         *sql.DB
	workerName string
	options    *options
}

var _ backend.Backend = (*mysqlBackend)(nil)

// Migrate applies any pending database migrations. Migrations run on a
// separate connection with multiStatements enabled.
func (mb *mysqlBackend) Migrate() error {
	schemaDsn := mb.dsn + "&multiStatements=true"
	db, err := sql.Open("mysql", schemaDsn)
	if err != nil {
		return fmt.Errorf("opening schema database: %w", err)
	}

	dbi, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "db/migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "mysql", dbi)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("closing schema database: %w", err)
	}

	return nil
}

func (mb *mysqlBackend) Logger() *slog.Logger {
	return mb.options.Logger
}

func (mb *mysqlBackend) Tracer() trace.Tracer {
	return mb.options.TracerProvider.Tracer(backend.TracerName)
}

func (mb *mysqlBackend) Metrics() metrics.Client {
	return mb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "mysql"})
}

func (mb *mysqlBackend) Converter() converter.Converter {
	return mb.options.Converter
}

func (mb *mysqlBackend) Options() *backend.Options {
	return &mb.options.Options
}

func (mb *mysqlBackend) Close() error {
	return mb.db.Close()
}

func (mb *mysqlBackend) CreateWorkflowInstance(ctx context.Context, instance *core.WorkflowInstance, event *history.Event) error {
	tx, err := mb.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"INSERT IGNORE INTO `instances` (instance_id, execution_id, state, created_at) VALUES (?, ?, ?, ?)",
		instance.InstanceID,
		instance.ExecutionID,
		core.WorkflowInstanceStateActive,
		mb.options.Clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("inserting workflow instance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		return backend.ErrInstanceAlreadyExists
	}

	if err := insertPendingEvents(ctx, tx, instance.InstanceID, []*history.Event{event}); err != nil {
		return fmt.Errorf("inserting start event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("creating workflow instance: %w", err)
	}

	return nil
}

func (mb *mysqlBackend) GetWorkflowInstance(ctx context.Context, instanceID string) (*backend.InstanceStatus, error) {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	s, err := getInstanceStatus(ctx, tx, instanceID)
	if err != nil {
		return nil, err
	}

	return s, tx.Commit()
}

func getInstanceStatus(ctx context.Context, tx *sql.Tx, instanceID string) (*backend.InstanceStatus, error) {
	row := tx.QueryRowContext(
		ctx,
		"SELECT instance_id, execution_id, state, created_at, completed_at, result, error FROM `instances` WHERE instance_id = ?",
		instanceID,
	)

	var id, executionID string
	var state core.WorkflowInstanceState
	var createdAt time.Time
	var completedAt sql.NullTime
	var result, errorBytes []byte

	if err := row.Scan(&id, &executionID, &state, &createdAt, &completedAt, &result, &errorBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backend.ErrInstanceNotFound
		}

		return nil, fmt.Errorf("getting workflow instance: %w", err)
	}

	s := &backend.InstanceStatus{
		Instance:  core.NewWorkflowInstance(id, executionID),
		State:     state,
		CreatedAt: createdAt,
		Result:    result,
	}

	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}

	if len(errorBytes) > 0 {
		var werr workflowerrors.Error
		if err := json.Unmarshal(errorBytes, &werr); err != nil {
			return nil, fmt.Errorf("unmarshaling workflow error: %w", err)
		}
		s.Error = &werr
	}

	lastStatus, err := getLastStatusSnapshot(ctx, tx, instanceID)
	if err != nil {
		return nil, err
	}
	s.LastStatus = lastStatus

	return s, nil
}

func getLastStatusSnapshot(ctx context.Context, tx *sql.Tx, instanceID string) (*backend.StatusSnapshot, error) {
	row := tx.QueryRowContext(
		ctx,
		"SELECT instance_id, seq, status, fields, region, timestamp FROM `status_snapshots` WHERE instance_id = ? ORDER BY seq DESC LIMIT 1",
		instanceID,
	)

	s, err := scanStatusSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return s, nil
}

func scanStatusSnapshot(row scanner) (*backend.StatusSnapshot, error) {
	var fields []byte

	s := &backend.StatusSnapshot{}

	if err := row.Scan(&s.InstanceID, &s.Seq, &s.Status, &fields, &s.Region, &s.Timestamp); err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &s.Fields); err != nil {
			return nil, fmt.Errorf("unmarshaling status fields: %w", err)
		}
	}

	return s, nil
}

func (mb *mysqlBackend) ListWorkflowInstances(ctx context.Context, after string, count int) ([]*backend.InstanceStatus, error) {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rows *sql.Rows
	if after != "" {
		rows, err = tx.QueryContext(
			ctx,
			"SELECT instance_id FROM `instances` WHERE id < (SELECT id FROM `instances` WHERE instance_id = ?) ORDER BY id DESC LIMIT ?",
			after,
			count,
		)
	} else {
		rows, err = tx.QueryContext(ctx, "SELECT instance_id FROM `instances` ORDER BY id DESC LIMIT ?", count)
	}
	if err != nil {
		return nil, fmt.Errorf("listing workflow instances: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, count)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	instances := make([]*backend.InstanceStatus, 0, len(ids))
	for _, id := range ids {
		s, err := getInstanceStatus(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		instances = append(instances, s)
	}

	return instances, tx.Commit()
}

func (mb *mysqlBackend) GetWorkflowInstanceState(ctx context.Context, instance *core.WorkflowInstance) (core.WorkflowInstanceState, error) {
	row := mb.db.QueryRowContext(
		ctx,
		"SELECT state FROM `instances` WHERE instance_id = ? AND execution_id = ?",
		instance.InstanceID,
		instance.ExecutionID,
	)

	var state core.WorkflowInstanceState
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.WorkflowInstanceStateActive, backend.ErrInstanceNotFound
		}

		return core.WorkflowInstanceStateActive, err
	}

	return state, nil
}

func (mb *mysqlBackend) GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error) {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	h, err := getHistory(ctx, tx, instance.InstanceID, lastSequenceID)
	if err != nil {
		return nil, fmt.Errorf("getting workflow history: %w", err)
	}

	return h, tx.Commit()
}

func (mb *mysqlBackend) GetStatusHistory(ctx context.Context, instanceID string) ([]*backend.StatusSnapshot, error) {
	rows, err := mb.db.QueryContext(
		ctx,
		"SELECT instance_id, seq, status, fields, region, timestamp FROM `status_snapshots` WHERE instance_id = ? ORDER BY seq",
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting status history: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*backend.StatusSnapshot, 0)
	for rows.Next() {
		s, err := scanStatusSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (mb *mysqlBackend) SignalWorkflow(ctx context.Context, instanceID string, event *history.Event) error {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	row := tx.QueryRowContext(ctx, "SELECT 1 FROM `instances` WHERE instance_id = ? LIMIT 1", instanceID)
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.ErrInstanceNotFound
		}

		return err
	}

	if err := insertPendingEvents(ctx, tx, instanceID, []*history.Event{event}); err != nil {
		return fmt.Errorf("inserting signal event: %w", err)
	}

	return tx.Commit()
}

func (mb *mysqlBackend) GetWorkflowTask(ctx context.Context) (*backend.WorkflowTask, error) {
	tx, err := mb.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Find an unlocked instance with due events to process.
	now := mb.options.Clock.Now()
	row := tx.QueryRowContext(
		ctx,
		`SELECT i.id, i.instance_id, i.execution_id
			FROM instances i
			INNER JOIN pending_events pe ON i.instance_id = pe.instance_id
			WHERE
				i.state = ?
				AND (pe.visible_at IS NULL OR pe.visible_at <= ?)
				AND (i.locked_until IS NULL OR i.locked_until < ?)
				AND (i.sticky_until IS NULL OR i.sticky_until < ? OR i.worker = ?)
			LIMIT 1
			FOR UPDATE OF i SKIP LOCKED`,
		core.WorkflowInstanceStateActive,
		now, // event visible_at
		now, // locked_until
		now, // sticky_until
		mb.workerName,
	)

	var id int64
	var instanceID, executionID string
	if err := row.Scan(&id, &instanceID, &executionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("scanning workflow instance: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		"UPDATE `instances` SET locked_until = ?, worker = ? WHERE id = ?",
		now.Add(mb.options.WorkflowLockTimeout),
		mb.workerName,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("locking workflow instance: %w", err)
	}

	if affectedRows, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("locking workflow instance: %w", err)
	} else if affectedRows == 0 {
		return nil, nil
	}

	t := &backend.WorkflowTask{
		ID:                    uuid.NewString(),
		WorkflowInstance:      core.NewWorkflowInstance(instanceID, executionID),
		WorkflowInstanceState: core.WorkflowInstanceStateActive,
	}

	pendingEvents, err := getPendingEvents(ctx, tx, instanceID, now)
	if err != nil {
		return nil, fmt.Errorf("getting pending events: %w", err)
	}

	if len(pendingEvents) == 0 {
		return nil, nil
	}

	t.NewEvents = pendingEvents

	row = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sequence_id), 0) FROM `history` WHERE instance_id = ?", instanceID)
	if err := row.Scan(&t.LastSequenceID); err != nil {
		return nil, fmt.Errorf("getting most recent sequence id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return t, nil
}

func (mb *mysqlBackend) ExtendWorkflowTask(ctx context.Context, task *backend.WorkflowTask) error {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	until := mb.options.Clock.Now().Add(mb.options.WorkflowLockTimeout)
	res, err := tx.ExecContext(
		ctx,
		"UPDATE `instances` SET locked_until = ? WHERE instance_id = ? AND execution_id = ? AND worker = ?",
		until,
		task.WorkflowInstance.InstanceID,
		task.WorkflowInstance.ExecutionID,
		mb.workerName,
	)
	if err != nil {
		return fmt.Errorf("extending workflow task lock: %w", err)
	}

	if rowsAffected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("determining if workflow task was extended: %w", err)
	} else if rowsAffected == 0 {
		return errors.New("could not extend workflow task")
	}

	return tx.Commit()
}

func (mb *mysqlBackend) CompleteWorkflowTask(
	ctx context.Context,
	task *backend.WorkflowTask,
	state core.WorkflowInstanceState,
	executedEvents, activityEvents, timerEvents []*history.Event,
	statusEvents []*backend.StatusSnapshot,
) error {
	tx, err := mb.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	instance := task.WorkflowInstance
	now := mb.options.Clock.Now()

	// Guard against a concurrent writer having appended to the history since
	// the task was read.
	var maxSequenceID int64
	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sequence_id), 0) FROM `history` WHERE instance_id = ?", instance.InstanceID)
	if err := row.Scan(&maxSequenceID); err != nil {
		return fmt.Errorf("getting most recent sequence id: %w", err)
	}

	if maxSequenceID != task.LastSequenceID {
		return backend.ErrVersionConflict
	}

	var completedAt *time.Time
	var result []byte
	var errorBytes []byte
	if state == core.WorkflowInstanceStateFinished {
		completedAt = &now

		for _, e := range executedEvents {
			if e.Type == history.EventType_WorkflowExecutionFinished {
				a := e.Attributes.(*history.ExecutionCompletedAttributes)
				result = a.Result
				if a.Error != nil {
					errorBytes, err = json.Marshal(a.Error)
					if err != nil {
						return fmt.Errorf("marshaling workflow error: %w", err)
					}
				}
			}
		}
	}

	// Unlock the instance, but keep it sticky to the current worker
	if res, err := tx.ExecContext(
		ctx,
		"UPDATE `instances` SET locked_until = NULL, sticky_until = ?, state = ?, completed_at = ?, result = ?, error = ? WHERE instance_id = ? AND execution_id = ? AND worker = ?",
		now.Add(mb.options.StickyTimeout),
		state,
		completedAt,
		result,
		errorBytes,
		instance.InstanceID,
		instance.ExecutionID,
		mb.workerName,
	); err != nil {
		return fmt.Errorf("unlocking workflow instance: %w", err)
	} else if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking for unlocked workflow instances: %w", err)
	} else if n != 1 {
		return errors.New("could not find workflow instance to unlock")
	}

	if err := removePendingEvents(ctx, tx, instance.InstanceID, executedEvents); err != nil {
		return err
	}

	if err := insertHistoryEvents(ctx, tx, instance.InstanceID, executedEvents); err != nil {
		return fmt.Errorf("inserting history events: %w", err)
	}

	for _, event := range activityEvents {
		if err := scheduleActivity(ctx, tx, instance.InstanceID, instance.ExecutionID, event); err != nil {
			return fmt.Errorf("scheduling activity: %w", err)
		}
	}

	if len(timerEvents) > 0 {
		if err := insertPendingEvents(ctx, tx, instance.InstanceID, timerEvents); err != nil {
			return fmt.Errorf("inserting timer events: %w", err)
		}
	}

	for _, s := range statusEvents {
		if s.Region == "" {
			s.Region = mb.options.Region
		}

		var fields []byte
		if len(s.Fields) > 0 {
			fields, err = json.Marshal(s.Fields)
			if err != nil {
				return fmt.Errorf("marshaling status fields: %w", err)
			}
		}

		if _, err := tx.ExecContext(
			ctx,
			"INSERT INTO `status_snapshots` (instance_id, seq, status, fields, region, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
			s.InstanceID,
			s.Seq,
			s.Status,
			fields,
			s.Region,
			s.Timestamp,
		); err != nil {
			return fmt.Errorf("inserting status snapshot: %w", err)
		}
	}

	return tx.Commit()
}

func (mb *mysqlBackend) GetActivityTask(ctx context.Context) (*backend.ActivityTask, error) {
	tx, err := mb.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Retried activities carry a visible_at in the future until their backoff
	// has elapsed.
	now := mb.options.Clock.Now()
	row := tx.QueryRowContext(
		ctx,
		`SELECT id, activity_id, instance_id, execution_id, event_type, timestamp, schedule_event_id, attributes, visible_at, attempt
			FROM activities
			WHERE (locked_until IS NULL OR locked_until < ?)
				AND (visible_at IS NULL OR visible_at <= ?)
			LIMIT 1
			FOR UPDATE SKIP LOCKED`,
		now,
		now,
	)

	var id int64
	var instanceID, executionID string
	var attributes []byte
	var attempt int

	event := &history.Event{}

	if err := row.Scan(
		&id, &event.ID, &instanceID, &executionID, &event.Type, &event.Timestamp, &event.ScheduleEventID, &attributes, &event.VisibleAt, &attempt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("locking activity task: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE `activities` SET locked_until = ?, worker = ? WHERE id = ?",
		now.Add(mb.options.ActivityLockTimeout),
		mb.workerName,
		id,
	); err != nil {
		return nil, fmt.Errorf("locking activity: %w", err)
	}

	a, err := history.DeserializeAttributes(event.Type, attributes)
	if err != nil {
		return nil, fmt.Errorf("deserializing attributes: %w", err)
	}

	event.Attributes = a

	t := &backend.ActivityTask{
		ID:               event.ID,
		WorkflowInstance: core.NewWorkflowInstance(instanceID, executionID),
		Event:            event,
		Attempt:          attempt,
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return t, nil
}

func (mb *mysqlBackend) ExtendActivityTask(ctx context.Context, task *backend.ActivityTask) error {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	until := mb.options.Clock.Now().Add(mb.options.ActivityLockTimeout)
	res, err := tx.ExecContext(
		ctx,
		"UPDATE `activities` SET locked_until = ? WHERE activity_id = ? AND worker = ?",
		until,
		task.ID,
		mb.workerName,
	)
	if err != nil {
		return fmt.Errorf("extending activity lock: %w", err)
	}

	if rowsAffected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("determining if activity was extended: %w", err)
	} else if rowsAffected == 0 {
		return errors.New("could not extend activity")
	}

	return tx.Commit()
}

func (mb *mysqlBackend) RetryActivityTask(ctx context.Context, task *backend.ActivityTask, visibleAt time.Time) error {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"UPDATE `activities` SET locked_until = NULL, worker = NULL, attempt = attempt + 1, visible_at = ? WHERE activity_id = ? AND worker = ?",
		visibleAt,
		task.ID,
		mb.workerName,
	)
	if err != nil {
		return fmt.Errorf("rescheduling activity: %w", err)
	}

	if rowsAffected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("determining if activity was rescheduled: %w", err)
	} else if rowsAffected == 0 {
		return errors.New("could not find activity to reschedule")
	}

	return tx.Commit()
}

func (mb *mysqlBackend) CompleteActivityTask(ctx context.Context, task *backend.ActivityTask, result *history.Event) error {
	tx, err := mb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if res, err := tx.ExecContext(
		ctx,
		"DELETE FROM `activities` WHERE instance_id = ? AND activity_id = ? AND worker = ?",
		task.WorkflowInstance.InstanceID,
		task.ID,
		mb.workerName,
	); err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	} else if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking for deleted activities: %w", err)
	} else if n != 1 {
		return errors.New("could not find activity to delete")
	}

	if err := insertPendingEvents(ctx, tx, task.WorkflowInstance.InstanceID, []*history.Event{result}); err != nil {
		return fmt.Errorf("inserting result event: %w", err)
	}

	return tx.Commit()
}

func (mb *mysqlBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	s := &backend.Stats{}

	row := mb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `instances` WHERE state = ?", core.WorkflowInstanceStateActive)
	if err := row.Scan(&s.ActiveWorkflowInstances); err != nil {
		return nil, fmt.Errorf("getting active instances: %w", err)
	}

	now := mb.options.Clock.Now()
	row = mb.db.QueryRowContext(
		ctx,
		"SELECT COUNT(DISTINCT instance_id) FROM `pending_events` WHERE visible_at IS NULL OR visible_at <= ?",
		now,
	)
	if err := row.Scan(&s.PendingWorkflowTasks); err != nil {
		return nil, fmt.Errorf("getting pending workflow tasks: %w", err)
	}

	row = mb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `activities`")
	if err := row.Scan(&s.PendingActivities); err != nil {
		return nil, fmt.Errorf("getting pending activities: %w", err)
	}

	return s, nil
}
