package interview

import (
	"errors"
	"fmt"
	"time"

	"github.com/hirepipe/interviewflow/workflow"
)

// Workflow drives one interview through its lifecycle: calendar invitation,
// two-stage candidate confirmation, material preparation, completion wait and
// scoring. Unhandled errors are routed through the failure handler activity
// before being surfaced to the caller.
func Workflow(ctx *workflow.Context, input Input) (string, error) {
	result, err := run(ctx, input)
	if err == nil || workflow.Suspended(err) {
		return result, err
	}

	workflow.Logger(ctx).Error("Interview workflow failed", "error", err)

	workflow.SetStatus(ctx, StatusFailed, map[string]any{
		"InterviewId": input.InterviewID,
		"Error":       err.Error(),
	})

	if _, herr := workflow.ExecuteActivity[struct{}](ctx, ActivityHandleWorkflowFailure, FailureInput{
		InterviewID:  input.InterviewID,
		ErrorMessage: err.Error(),
	}); herr != nil {
		if workflow.Suspended(herr) {
			return "", herr
		}

		// The failure handler itself failed; the original error still wins.
		workflow.Logger(ctx).Error("Failure handler failed", "error", herr)
	}

	return "", err
}

func run(ctx *workflow.Context, input Input) (string, error) {
	logger := workflow.Logger(ctx)

	logger.Info("Starting interview workflow", "candidate", input.CandidateEmail)

	workflow.SetStatus(ctx, StatusStarted, map[string]any{
		"InterviewId": input.InterviewID,
		"StartTime":   workflow.Now(ctx),
	})

	// Step 1: send the calendar invitation
	calendarResult, err := workflow.ExecuteActivity[CalendarResult](
		ctx, ActivitySendCalendarInvitation, CalendarInput{
			CandidateEmail:   input.CandidateEmail,
			InterviewerEmail: input.InterviewerEmail,
			ScheduledTime:    input.ScheduledTime,
			InterviewID:      input.InterviewID,
		},
		workflow.WithRetryPolicy(workflow.RetryPolicy{
			MaxAttempts: 3,
			Backoff:     30 * time.Second,
		}))
	if err != nil {
		return "", err
	}

	if !calendarResult.Success {
		return "", errors.New("failed to send calendar invitation")
	}

	workflow.SetStatus(ctx, StatusAwaitingConfirmation, map[string]any{
		"InterviewId": input.InterviewID,
	})

	// Step 2: wait for candidate confirmation, with one reminder
	confirmation, err := workflow.WaitForEvent[ConfirmationEvent](
		ctx, EventCandidateConfirmation, ConfirmationTimeout)
	if err != nil {
		if !errors.Is(err, workflow.ErrTimedOut) {
			return "", err
		}

		logger.Warn("No confirmation received for interview", "interview_id", input.InterviewID)

		workflow.SetStatus(ctx, StatusReminderSent, map[string]any{
			"InterviewId": input.InterviewID,
		})

		if _, err := workflow.ExecuteActivity[struct{}](ctx, ActivitySendReminderEmail, ReminderInput{
			InterviewID: input.InterviewID,
			Reason:      "No confirmation received",
		}); err != nil {
			return "", err
		}

		confirmation, err = workflow.WaitForEvent[ConfirmationEvent](
			ctx, EventCandidateConfirmation, ReminderTimeout)
		if err != nil {
			if !errors.Is(err, workflow.ErrTimedOut) {
				return "", err
			}

			return ResultCancelled, nil
		}
	}

	workflow.SetStatus(ctx, StatusConfirmed, map[string]any{
		"InterviewId":      input.InterviewID,
		"ConfirmationTime": confirmation.ConfirmationTime,
	})

	// Step 3: prepare materials
	if _, err := workflow.ExecuteActivity[struct{}](ctx, ActivityPrepareInterviewMaterials, MaterialsInput{
		InterviewID: input.InterviewID,
	}); err != nil {
		return "", err
	}

	workflow.SetStatus(ctx, StatusInProgress, map[string]any{
		"InterviewId": input.InterviewID,
	})

	// Step 4: wait for the interview to complete
	completed, err := workflow.WaitForEvent[Result](
		ctx, EventInterviewCompleted, InterviewTimeout)
	if err != nil {
		if !errors.Is(err, workflow.ErrTimedOut) {
			return "", err
		}

		workflow.SetStatus(ctx, StatusOverdue, map[string]any{
			"InterviewId": input.InterviewID,
		})

		if _, err := workflow.ExecuteActivity[struct{}](ctx, ActivityHandleOverdueInterview, OverdueInput{
			InterviewID: input.InterviewID,
		}); err != nil {
			return "", err
		}

		return ResultIncomplete, nil
	}

	// Step 5: score the results
	final, err := workflow.ExecuteActivity[FinalResult](
		ctx, ActivityProcessInterviewResults, completed)
	if err != nil {
		return "", err
	}

	workflow.SetStatus(ctx, StatusCompleted, map[string]any{
		"InterviewId": input.InterviewID,
		"Outcome":     final.Outcome,
		"Score":       final.Score,
	})

	return fmt.Sprintf("Interview completed successfully. Result: %s", final.Outcome), nil
}
