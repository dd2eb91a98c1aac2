package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hirepipe/interviewflow/backend/history"
)

func getPendingEvents(ctx context.Context, tx *sql.Tx, instanceID string, now time.Time) ([]*history.Event, error) {
	rows, err := tx.QueryContext(
		ctx,
		"SELECT event_id, event_type, timestamp, schedule_event_id, attributes, visible_at FROM `pending_events` WHERE instance_id = ? AND (visible_at IS NULL OR visible_at <= ?) ORDER BY id",
		instanceID,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("getting pending events: %w", err)
	}
	defer rows.Close()

	pendingEvents := make([]*history.Event, 0)

	for rows.Next() {
		pendingEvent, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("reading pending event: %w", err)
		}

		pendingEvents = append(pendingEvents, pendingEvent)
	}

	return pendingEvents, rows.Err()
}

func getHistory(ctx context.Context, tx *sql.Tx, instanceID string, lastSequenceID *int64) ([]*history.Event, error) {
	var rows *sql.Rows
	var err error
	if lastSequenceID != nil {
		rows, err = tx.QueryContext(
			ctx,
			"SELECT event_id, event_type, timestamp, schedule_event_id, attributes, visible_at, sequence_id FROM `history` WHERE instance_id = ? AND sequence_id > ? ORDER BY sequence_id",
			instanceID,
			*lastSequenceID,
		)
	} else {
		rows, err = tx.QueryContext(
			ctx,
			"SELECT event_id, event_type, timestamp, schedule_event_id, attributes, visible_at, sequence_id FROM `history` WHERE instance_id = ? ORDER BY sequence_id",
			instanceID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	events := make([]*history.Event, 0)

	for rows.Next() {
		var attributes []byte

		event := &history.Event{}

		if err := rows.Scan(
			&event.ID, &event.Type, &event.Timestamp, &event.ScheduleEventID, &attributes, &event.VisibleAt, &event.SequenceID,
		); err != nil {
			return nil, fmt.Errorf("scanning history event: %w", err)
		}

		a, err := history.DeserializeAttributes(event.Type, attributes)
		if err != nil {
			return nil, fmt.Errorf("deserializing attributes: %w", err)
		}

		event.Attributes = a

		events = append(events, event)
	}

	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (*history.Event, error) {
	var attributes []byte

	event := &history.Event{}

	if err := row.Scan(&event.ID, &event.Type, &event.Timestamp, &event.ScheduleEventID, &attributes, &event.VisibleAt); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	a, err := history.DeserializeAttributes(event.Type, attributes)
	if err != nil {
		return nil, fmt.Errorf("deserializing attributes: %w", err)
	}

	event.Attributes = a

	return event, nil
}

func insertPendingEvents(ctx context.Context, tx *sql.Tx, instanceID string, newEvents []*history.Event) error {
	const batchSize = 20
	for batchStart := 0; batchStart < len(newEvents); batchStart += batchSize {
		batchEnd := min(batchStart+batchSize, len(newEvents))
		batchEvents := newEvents[batchStart:batchEnd]

		query := "INSERT INTO `pending_events` (event_id, instance_id, event_type, timestamp, schedule_event_id, attributes, visible_at) VALUES (?, ?, ?, ?, ?, ?, ?)" +
			strings.Repeat(", (?, ?, ?, ?, ?, ?, ?)", len(batchEvents)-1)

		args := make([]interface{}, 0, len(batchEvents)*7)

		for _, newEvent := range batchEvents {
			a, err := history.SerializeAttributes(newEvent.Attributes)
			if err != nil {
				return err
			}

			args = append(args, newEvent.ID, instanceID, newEvent.Type, newEvent.Timestamp, newEvent.ScheduleEventID, a, newEvent.VisibleAt)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting pending events: %w", err)
		}
	}

	return nil
}

func insertHistoryEvents(ctx context.Context, tx *sql.Tx, instanceID string, historyEvents []*history.Event) error {
	const batchSize = 20
	for batchStart := 0; batchStart < len(historyEvents); batchStart += batchSize {
		batchEnd := min(batchStart+batchSize, len(historyEvents))
		batchEvents := historyEvents[batchStart:batchEnd]

		query := "INSERT INTO `history` (event_id, instance_id, event_type, timestamp, schedule_event_id, sequence_id, attributes, visible_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)" +
			strings.Repeat(", (?, ?, ?, ?, ?, ?, ?, ?)", len(batchEvents)-1)

		args := make([]interface{}, 0, len(batchEvents)*8)

		for _, historyEvent := range batchEvents {
			a, err := history.SerializeAttributes(historyEvent.Attributes)
			if err != nil {
				return err
			}

			args = append(args, historyEvent.ID, instanceID, historyEvent.Type, historyEvent.Timestamp, historyEvent.ScheduleEventID, historyEvent.SequenceID, a, historyEvent.VisibleAt)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting history events: %w", err)
		}
	}

	return nil
}

func removePendingEvents(ctx context.Context, tx *sql.Tx, instanceID string, events []*history.Event) error {
	if len(events) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(events)+1)
	args = append(args, instanceID)
	for _, e := range events {
		args = append(args, e.ID)
	}

	if _, err := tx.ExecContext(
		ctx,
		fmt.Sprintf("DELETE FROM `pending_events` WHERE instance_id = ? AND event_id IN (?%v)", strings.Repeat(",?", len(events)-1)),
		args...,
	); err != nil {
		return fmt.Errorf("deleting handled events: %w", err)
	}

	return nil
}

func scheduleActivity(ctx context.Context, tx *sql.Tx, instanceID, executionID string, event *history.Event) error {
	a, err := history.SerializeAttributes(event.Attributes)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO `activities` (activity_id, instance_id, execution_id, event_type, timestamp, schedule_event_id, attributes, visible_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		event.ID,
		instanceID,
		executionID,
		event.Type,
		event.Timestamp,
		event.ScheduleEventID,
		a,
		event.VisibleAt,
	)
	if err != nil {
		return fmt.Errorf("scheduling activity: %w", err)
	}

	return nil
}
