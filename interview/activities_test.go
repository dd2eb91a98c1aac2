package interview_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/interview"
)

func Test_ProcessInterviewResults_Passed(t *testing.T) {
	a := interview.NewActivities(slog.Default())

	result, err := a.ProcessInterviewResults(context.Background(), interview.Result{
		InterviewID: "i-1",
		Feedback:    "excellent work",
		Responses: []interview.QuestionResponse{
			{Quality: 4},
			{Quality: 5},
			{Quality: 4},
		},
	})
	require.NoError(t, err)

	require.Equal(t, "Passed", result.Outcome)
	require.Equal(t, 4, result.Score)
	require.Equal(t, "i-1", result.InterviewID)
}

func Test_ProcessInterviewResults_ReviewRequired(t *testing.T) {
	a := interview.NewActivities(slog.Default())

	result, err := a.ProcessInterviewResults(context.Background(), interview.Result{
		InterviewID: "i-2",
		Feedback:    "needs work",
	})
	require.NoError(t, err)

	require.Equal(t, "Review Required", result.Outcome)
	require.Equal(t, 0, result.Score)
}

// The substring match is case sensitive.
func Test_ProcessInterviewResults_CaseSensitive(t *testing.T) {
	a := interview.NewActivities(slog.Default())

	result, err := a.ProcessInterviewResults(context.Background(), interview.Result{
		InterviewID: "i-3",
		Feedback:    "Excellent candidate",
		Responses:   []interview.QuestionResponse{{Quality: 5}},
	})
	require.NoError(t, err)

	require.Equal(t, "Review Required", result.Outcome)
	require.Equal(t, 5, result.Score)
}

func Test_SendCalendarInvitation(t *testing.T) {
	a := interview.NewActivities(slog.Default())

	result, err := a.SendCalendarInvitation(context.Background(), interview.CalendarInput{
		InterviewID:    "i-4",
		CandidateEmail: "jo@example.com",
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	require.NotEmpty(t, result.MeetingID)
	require.Empty(t, result.ErrorMessage)
}
