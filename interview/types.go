package interview

import "time"

const WorkflowName = "InterviewWorkflow"

// Event names the workflow waits on.
const (
	EventCandidateConfirmation = "CandidateConfirmation"
	EventInterviewCompleted    = "InterviewCompleted"
)

// Activity names.
const (
	ActivitySendCalendarInvitation    = "SendCalendarInvitation"
	ActivitySendReminderEmail         = "SendReminderEmail"
	ActivityPrepareInterviewMaterials = "PrepareInterviewMaterials"
	ActivityHandleOverdueInterview    = "HandleOverdueInterview"
	ActivityProcessInterviewResults   = "ProcessInterviewResults"
	ActivityHandleWorkflowFailure     = "HandleWorkflowFailure"
)

// Custom status values, in lifecycle order.
const (
	StatusStarted              = "Started"
	StatusAwaitingConfirmation = "AwaitingConfirmation"
	StatusReminderSent         = "ReminderSent"
	StatusConfirmed            = "Confirmed"
	StatusInProgress           = "InProgress"
	StatusOverdue              = "Overdue"
	StatusCompleted            = "Completed"
	StatusFailed               = "Failed"
)

// Terminal result messages.
const (
	ResultCancelled  = "Interview cancelled - no response from candidate"
	ResultIncomplete = "Interview marked as incomplete - time limit exceeded"
)

// DefaultEmail is substituted for missing candidate or interviewer addresses.
const DefaultEmail = "unknown@example.com"

// Timeout ladder for the lifecycle.
const (
	ConfirmationTimeout = 2 * time.Hour
	ReminderTimeout     = 1 * time.Hour
	InterviewTimeout    = 3 * time.Hour
)

// Input is the workflow input for one interview instance.
type Input struct {
	InterviewID      string    `json:"interviewId"`
	CandidateEmail   string    `json:"candidateEmail"`
	InterviewerEmail string    `json:"interviewerEmail"`
	ScheduledTime    time.Time `json:"scheduledTime"`
}

type CalendarInput struct {
	CandidateEmail   string    `json:"candidateEmail"`
	InterviewerEmail string    `json:"interviewerEmail"`
	ScheduledTime    time.Time `json:"scheduledTime"`
	InterviewID      string    `json:"interviewId"`
}

type CalendarResult struct {
	Success      bool   `json:"success"`
	MeetingID    string `json:"meetingId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ConfirmationEvent is the payload of the CandidateConfirmation event.
type ConfirmationEvent struct {
	InterviewID      string    `json:"interviewId"`
	Confirmed        bool      `json:"confirmed"`
	ConfirmationTime time.Time `json:"confirmationTime"`
}

type ReminderInput struct {
	InterviewID string `json:"interviewId"`
	Reason      string `json:"reason"`
}

type MaterialsInput struct {
	InterviewID string `json:"interviewId"`
}

// Result is the payload of the InterviewCompleted event.
type Result struct {
	InterviewID    string             `json:"interviewId"`
	Feedback       string             `json:"feedback"`
	Responses      []QuestionResponse `json:"responses"`
	CompletionTime time.Time          `json:"completionTime"`
}

type QuestionResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Quality  int    `json:"quality"`
}

// FinalResult is the scoring output of ProcessInterviewResults.
type FinalResult struct {
	InterviewID string `json:"interviewId"`
	Outcome     string `json:"outcome"`
	Score       int    `json:"score"`
}

type FailureInput struct {
	InterviewID  string `json:"interviewId"`
	ErrorMessage string `json:"errorMessage"`
}

type OverdueInput struct {
	InterviewID string `json:"interviewId"`
}
