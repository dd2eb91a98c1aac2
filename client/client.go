package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/metrics"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/log"
	"github.com/hirepipe/interviewflow/internal/metrickeys"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

type Client struct {
	backend backend.Backend
	clock   clock.Clock
}

func New(b backend.Backend) *Client {
	return &Client{
		backend: b,
		clock:   b.Options().Clock,
	}
}

// StartOrGet starts a new instance of the named workflow, using instanceID as
// the idempotency key. If an instance with that ID already exists, the
// existing instance is returned and created is false. The input is not
// compared against the existing instance's input.
func (c *Client) StartOrGet(
	ctx context.Context, instanceID string, workflowName string, input any,
) (instance *core.WorkflowInstance, created bool, err error) {
	inputPayload, err := c.backend.Converter().To(input)
	if err != nil {
		return nil, false, fmt.Errorf("converting workflow input: %w", err)
	}

	wfi := core.NewWorkflowInstance(instanceID, uuid.NewString())

	ctx, span := c.backend.Tracer().Start(ctx, fmt.Sprintf("StartWorkflowInstance: %s", workflowName),
		trace.WithAttributes(
			attribute.String(log.InstanceIDKey, wfi.InstanceID),
			attribute.String(log.WorkflowNameKey, workflowName),
		))
	defer span.End()

	startedEvent := history.NewPendingEvent(
		c.clock.Now(),
		history.EventType_WorkflowExecutionStarted,
		&history.ExecutionStartedAttributes{
			Name:  workflowName,
			Input: inputPayload,
		})

	if err := c.backend.CreateWorkflowInstance(ctx, wfi, startedEvent); err != nil {
		if errors.Is(err, backend.ErrInstanceAlreadyExists) {
			existing, err := c.backend.GetWorkflowInstance(ctx, instanceID)
			if err != nil {
				return nil, false, fmt.Errorf("getting existing workflow instance: %w", err)
			}

			return existing.Instance, false, nil
		}

		return nil, false, fmt.Errorf("creating workflow instance: %w", err)
	}

	c.backend.Logger().DebugContext(ctx, "Created workflow instance",
		log.InstanceIDKey, wfi.InstanceID,
		log.ExecutionIDKey, wfi.ExecutionID,
		log.WorkflowNameKey, workflowName,
	)

	c.backend.Metrics().Counter(metrickeys.WorkflowInstanceCreated, metrics.Tags{}, 1)

	return wfi, true, nil
}

// Raise delivers an external event to a running workflow instance. Events
// raised against an unknown instance return backend.ErrInstanceNotFound;
// events raised against a finished instance are accepted and discarded.
func (c *Client) Raise(ctx context.Context, instanceID string, name string, arg any) error {
	ctx, span := c.backend.Tracer().Start(ctx, "RaiseEvent", trace.WithAttributes(
		attribute.String(log.InstanceIDKey, instanceID),
		attribute.String(log.SignalNameKey, name),
	))
	defer span.End()

	input, err := c.backend.Converter().To(arg)
	if err != nil {
		return fmt.Errorf("converting event argument: %w", err)
	}

	signalEvent := history.NewPendingEvent(
		c.clock.Now(),
		history.EventType_SignalReceived,
		&history.SignalReceivedAttributes{
			Name: name,
			Arg:  input,
		},
	)

	if err := c.backend.SignalWorkflow(ctx, instanceID, signalEvent); err != nil {
		span.RecordError(err)
		return err
	}

	c.backend.Metrics().Counter(metrickeys.SignalDelivered,
		metrics.Tags{metrickeys.SignalName: name}, 1)

	c.backend.Logger().DebugContext(ctx, "Raised event for workflow instance",
		log.InstanceIDKey, instanceID, log.SignalNameKey, name)

	return nil
}

// GetInstance returns the current state of the given workflow instance,
// including its latest custom status snapshot.
func (c *Client) GetInstance(ctx context.Context, instanceID string) (*backend.InstanceStatus, error) {
	return c.backend.GetWorkflowInstance(ctx, instanceID)
}

// GetStatusHistory returns the ordered custom status snapshots recorded for
// the given workflow instance.
func (c *Client) GetStatusHistory(ctx context.Context, instanceID string) ([]*backend.StatusSnapshot, error) {
	return c.backend.GetStatusHistory(ctx, instanceID)
}

// ListInstances returns up to count workflow instances created before the
// instance identified by after, newest first. An empty after starts from the
// newest instance.
func (c *Client) ListInstances(ctx context.Context, after string, count int) ([]*backend.InstanceStatus, error) {
	return c.backend.ListWorkflowInstances(ctx, after, count)
}

// GetHistory returns the workflow instance's history events after the given
// sequence ID. Pass nil to fetch the full history.
func (c *Client) GetHistory(
	ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64,
) ([]*history.Event, error) {
	return c.backend.GetWorkflowInstanceHistory(ctx, instance, lastSequenceID)
}

// WaitForWorkflowInstance waits for the given workflow instance to finish or
// until the given timeout has expired.
func (c *Client) WaitForWorkflowInstance(
	ctx context.Context, instance *core.WorkflowInstance, timeout time.Duration,
) error {
	if timeout == 0 {
		timeout = time.Second * 20
	}

	ctx, span := c.backend.Tracer().Start(ctx, "WaitForWorkflowInstance", trace.WithAttributes(
		attribute.String(log.InstanceIDKey, instance.InstanceID),
	))
	defer span.End()

	b := backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 1,
		MaxInterval:         time.Second * 1,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               c.clock,
	}
	b.Reset()

	ticker := backoff.NewTicker(&b)
	defer ticker.Stop()

	for range ticker.C {
		s, err := c.backend.GetWorkflowInstanceState(ctx, instance)
		if err != nil {
			return fmt.Errorf("getting workflow state: %w", err)
		}

		if s == core.WorkflowInstanceStateFinished {
			return nil
		}
	}

	return errors.New("workflow did not finish in specified timeout")
}

// GetWorkflowResult waits for the workflow instance to finish, then returns
// its result. A workflow that finished with an error yields that error.
func GetWorkflowResult[T any](
	ctx context.Context, c *Client, instance *core.WorkflowInstance, timeout time.Duration,
) (T, error) {
	b := c.backend

	ctx, span := b.Tracer().Start(ctx, "GetWorkflowResult", trace.WithAttributes(
		attribute.String(log.InstanceIDKey, instance.InstanceID),
	))
	defer span.End()

	if err := c.WaitForWorkflowInstance(ctx, instance, timeout); err != nil {
		return *new(T), fmt.Errorf("workflow did not finish in time: %w", err)
	}

	s, err := b.GetWorkflowInstance(ctx, instance.InstanceID)
	if err != nil {
		return *new(T), fmt.Errorf("getting workflow instance: %w", err)
	}

	if s.State != core.WorkflowInstanceStateFinished {
		return *new(T), backend.ErrInstanceNotFinished
	}

	if s.Error != nil {
		return *new(T), workflowerrors.ToError(s.Error)
	}

	var r T
	if err := b.Converter().From(s.Result, &r); err != nil {
		return *new(T), fmt.Errorf("converting workflow result: %w", err)
	}

	return r, nil
}
