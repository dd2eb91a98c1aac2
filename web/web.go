// Package web is the HTTP front door for the interview workflow engine. It
// exposes instance start, status queries and the event endpoints the outside
// world uses to confirm and complete interviews.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/client"
	"github.com/hirepipe/interviewflow/interview"
)

type Server struct {
	client *client.Client
	clock  clock.Clock
	logger *slog.Logger
}

func NewServer(c *client.Client, clock clock.Clock, logger *slog.Logger) *Server {
	return &Server{
		client: c,
		clock:  clock,
		logger: logger,
	}
}

// NewServeMux returns the API routes.
func (s *Server) NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/interviews", s.startInterview)
	mux.HandleFunc("GET /api/interviews", s.listInterviews)
	mux.HandleFunc("GET /api/interviews/{id}", s.getInterview)
	mux.HandleFunc("POST /api/interviews/{id}/confirmation", s.confirmInterview)
	mux.HandleFunc("POST /api/interviews/{id}/completed", s.completeInterview)

	return mux
}

type StartRequest struct {
	CandidateEmail   string    `json:"candidateEmail"`
	InterviewerEmail string    `json:"interviewerEmail"`
	ScheduledTime    time.Time `json:"scheduledTime"`
	IdempotencyKey   string    `json:"idempotencyKey"`
}

type StartResponse struct {
	InstanceID     string `json:"instanceId"`
	StatusQueryURI string `json:"statusQueryUri,omitempty"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	instanceID := req.IdempotencyKey
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	scheduledTime := req.ScheduledTime
	if scheduledTime.IsZero() {
		scheduledTime = s.clock.Now().Add(time.Hour)
	}

	input := interview.Input{
		InterviewID:      instanceID,
		CandidateEmail:   orDefault(req.CandidateEmail),
		InterviewerEmail: orDefault(req.InterviewerEmail),
		ScheduledTime:    scheduledTime,
	}

	_, created, err := s.client.StartOrGet(r.Context(), instanceID, interview.WorkflowName, input)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "error starting interview", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !created {
		status, err := s.client.GetInstance(r.Context(), instanceID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, &StartResponse{
			InstanceID: instanceID,
			Status:     status.State.String(),
			Message:    "Interview already started",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, &StartResponse{
		InstanceID:     instanceID,
		StatusQueryURI: "/api/interviews/" + instanceID,
	})
}

type InstanceResponse struct {
	InstanceID    string                    `json:"instanceId"`
	State         string                    `json:"state"`
	CreatedAt     time.Time                 `json:"createdAt"`
	CompletedAt   *time.Time                `json:"completedAt,omitempty"`
	Result        json.RawMessage           `json:"result,omitempty"`
	Error         string                    `json:"error,omitempty"`
	LastStatus    *backend.StatusSnapshot   `json:"lastStatus,omitempty"`
	StatusHistory []*backend.StatusSnapshot `json:"statusHistory,omitempty"`
	History       []*HistoryEvent           `json:"history,omitempty"`
}

type HistoryEvent struct {
	ID              string     `json:"id"`
	SequenceID      int64      `json:"sequence_id"`
	Type            string     `json:"type"`
	Timestamp       time.Time  `json:"timestamp"`
	ScheduleEventID int64      `json:"schedule_event_id"`
	Attributes      any        `json:"attributes"`
	VisibleAt       *time.Time `json:"visible_at,omitempty"`
}

func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	instanceID := r.PathValue("id")

	status, err := s.client.GetInstance(r.Context(), instanceID)
	if err != nil {
		if errors.Is(err, backend.ErrInstanceNotFound) {
			http.Error(w, "interview not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := &InstanceResponse{
		InstanceID:  instanceID,
		State:       status.State.String(),
		CreatedAt:   status.CreatedAt,
		CompletedAt: status.CompletedAt,
		Result:      json.RawMessage(status.Result),
		LastStatus:  status.LastStatus,
	}

	if status.Error != nil {
		resp.Error = status.Error.Message
	}

	snapshots, err := s.client.GetStatusHistory(r.Context(), instanceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp.StatusHistory = snapshots

	if r.URL.Query().Get("history") == "1" {
		events, err := s.client.GetHistory(r.Context(), status.Instance, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp.History = make([]*HistoryEvent, 0, len(events))
		for _, event := range events {
			resp.History = append(resp.History, &HistoryEvent{
				ID:              event.ID,
				SequenceID:      event.SequenceID,
				Type:            event.Type.String(),
				Timestamp:       event.Timestamp,
				ScheduleEventID: event.ScheduleEventID,
				Attributes:      event.Attributes,
				VisibleAt:       event.VisibleAt,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type ListResponse struct {
	Instances []*ListEntry `json:"instances"`
}

type ListEntry struct {
	InstanceID  string                  `json:"instanceId"`
	State       string                  `json:"state"`
	CreatedAt   time.Time               `json:"createdAt"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`
	LastStatus  *backend.StatusSnapshot `json:"lastStatus,omitempty"`
}

func (s *Server) listInterviews(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	count := 25
	if countStr := query.Get("count"); countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			http.Error(w, "invalid count", http.StatusBadRequest)
			return
		}
	}

	instances, err := s.client.ListInstances(r.Context(), query.Get("after"), count)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := &ListResponse{Instances: make([]*ListEntry, 0, len(instances))}
	for _, instance := range instances {
		resp.Instances = append(resp.Instances, &ListEntry{
			InstanceID:  instance.Instance.InstanceID,
			State:       instance.State.String(),
			CreatedAt:   instance.CreatedAt,
			CompletedAt: instance.CompletedAt,
			LastStatus:  instance.LastStatus,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type ConfirmationRequest struct {
	Confirmed        *bool     `json:"confirmed"`
	ConfirmationTime time.Time `json:"confirmationTime"`
}

func (s *Server) confirmInterview(w http.ResponseWriter, r *http.Request) {
	instanceID := r.PathValue("id")

	var req ConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	confirmed := true
	if req.Confirmed != nil {
		confirmed = *req.Confirmed
	}

	confirmationTime := req.ConfirmationTime
	if confirmationTime.IsZero() {
		confirmationTime = s.clock.Now()
	}

	s.raise(w, r, instanceID, interview.EventCandidateConfirmation, interview.ConfirmationEvent{
		InterviewID:      instanceID,
		Confirmed:        confirmed,
		ConfirmationTime: confirmationTime,
	})
}

func (s *Server) completeInterview(w http.ResponseWriter, r *http.Request) {
	instanceID := r.PathValue("id")

	var result interview.Result
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result.InterviewID = instanceID
	if result.CompletionTime.IsZero() {
		result.CompletionTime = s.clock.Now()
	}

	s.raise(w, r, instanceID, interview.EventInterviewCompleted, result)
}

func (s *Server) raise(w http.ResponseWriter, r *http.Request, instanceID, name string, arg any) {
	if err := s.client.Raise(r.Context(), instanceID, name, arg); err != nil {
		if errors.Is(err, backend.ErrInstanceNotFound) {
			http.Error(w, "interview not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func orDefault(email string) string {
	if email == "" {
		return interview.DefaultEmail
	}

	return email
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already written, nothing left to do
		return
	}
}
