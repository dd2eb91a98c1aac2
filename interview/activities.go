package interview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/hirepipe/interviewflow/internal/activity"
	"github.com/hirepipe/interviewflow/registry"
)

// Activities implements the side-effecting steps of the interview lifecycle.
// Mail and calendar delivery are represented by their logged effects; swap in
// real integrations behind the same activity names.
type Activities struct {
	Logger *slog.Logger
}

func NewActivities(logger *slog.Logger) *Activities {
	return &Activities{Logger: logger}
}

// Register adds the interview workflow and its activities to r.
func Register(r *registry.Registry, a *Activities) error {
	if err := registry.RegisterWorkflow(r, WorkflowName, Workflow); err != nil {
		return fmt.Errorf("registering interview workflow: %w", err)
	}

	if err := registry.RegisterActivity(r, ActivitySendCalendarInvitation, a.SendCalendarInvitation); err != nil {
		return err
	}

	if err := registry.RegisterActivity(r, ActivitySendReminderEmail, a.SendReminderEmail); err != nil {
		return err
	}

	if err := registry.RegisterActivity(r, ActivityPrepareInterviewMaterials, a.PrepareInterviewMaterials); err != nil {
		return err
	}

	if err := registry.RegisterActivity(r, ActivityHandleOverdueInterview, a.HandleOverdueInterview); err != nil {
		return err
	}

	if err := registry.RegisterActivity(r, ActivityProcessInterviewResults, a.ProcessInterviewResults); err != nil {
		return err
	}

	return registry.RegisterActivity(r, ActivityHandleWorkflowFailure, a.HandleWorkflowFailure)
}

func (a *Activities) SendCalendarInvitation(ctx context.Context, input CalendarInput) (CalendarResult, error) {
	a.logger(ctx).Info("Sending calendar invitation",
		"interview_id", input.InterviewID,
		"candidate", input.CandidateEmail,
		"scheduled_time", input.ScheduledTime)

	return CalendarResult{
		Success:   true,
		MeetingID: uuid.NewString(),
	}, nil
}

func (a *Activities) SendReminderEmail(ctx context.Context, input ReminderInput) (struct{}, error) {
	a.logger(ctx).Info("Sending reminder email",
		"interview_id", input.InterviewID,
		"reason", input.Reason)

	return struct{}{}, nil
}

func (a *Activities) PrepareInterviewMaterials(ctx context.Context, input MaterialsInput) (struct{}, error) {
	a.logger(ctx).Info("Preparing interview materials", "interview_id", input.InterviewID)

	return struct{}{}, nil
}

func (a *Activities) HandleOverdueInterview(ctx context.Context, input OverdueInput) (struct{}, error) {
	a.logger(ctx).Info("Handling overdue interview", "interview_id", input.InterviewID)

	return struct{}{}, nil
}

// ProcessInterviewResults derives the interview outcome. Feedback containing
// the exact substring "excellent" passes; the score is the rounded mean of
// the response quality ratings, 0 when there are none.
func (a *Activities) ProcessInterviewResults(ctx context.Context, input Result) (FinalResult, error) {
	a.logger(ctx).Info("Processing interview results", "interview_id", input.InterviewID)

	outcome := "Review Required"
	if strings.Contains(input.Feedback, "excellent") {
		outcome = "Passed"
	}

	return FinalResult{
		InterviewID: input.InterviewID,
		Outcome:     outcome,
		Score:       calculateScore(input.Responses),
	}, nil
}

func (a *Activities) HandleWorkflowFailure(ctx context.Context, input FailureInput) (struct{}, error) {
	a.logger(ctx).Error("Interview workflow failed",
		"interview_id", input.InterviewID,
		"error_message", input.ErrorMessage)

	return struct{}{}, nil
}

func (a *Activities) logger(ctx context.Context) *slog.Logger {
	if s := activity.GetActivityState(ctx); s != nil {
		return s.Logger
	}

	return a.Logger
}

func calculateScore(responses []QuestionResponse) int {
	if len(responses) == 0 {
		return 0
	}

	sum := 0
	for _, r := range responses {
		sum += r.Quality
	}

	return int(math.Round(float64(sum) / float64(len(responses))))
}
