package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appLog "groovecal/internal/log"
	"groovecal/internal/model"
	"groovecal/internal/schedule"
	"groovecal/internal/validate"
)

// habitDTO is a habit plus its recurrence rendered as an RFC 5545 rule,
// anchored at today in the owner's zone.
type habitDTO struct {
	model.Habit
	RRule string `json:"rrule,omitempty"`
}

// habitRequest is the writable part of a habit. Active defaults to true on
// create and to the stored value on update.
type habitRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    model.Category  `json:"category"`
	Frequency   model.Frequency `json:"frequency"`
	Duration    int             `json:"duration"`
	Priority    model.Priority  `json:"priority"`
	Tags        []string        `json:"tags"`
	Active      *bool           `json:"active"`
}

func (req habitRequest) apply(h *model.Habit) {
	h.Name = req.Name
	h.Description = req.Description
	h.Category = req.Category
	h.Frequency = req.Frequency
	h.Duration = req.Duration
	h.Priority = req.Priority
	h.Tags = req.Tags
	if req.Active != nil {
		h.Active = *req.Active
	}
}

func (s *Server) toDTO(h model.Habit, anchor time.Time) habitDTO {
	dto := habitDTO{Habit: h}
	if h.Tags == nil {
		dto.Tags = []string{}
	}
	if rule, err := schedule.RRuleString(h.Frequency, anchor); err == nil {
		dto.RRule = rule
	}
	return dto
}

// anchor returns today's date in the user's zone.
func (s *Server) anchor(u *model.User) time.Time {
	start, _ := s.feeds.Window(u, s.now())
	return start
}

// GET /api/users/{userID}/habits
func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := s.store.GetUser(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}
	habits, err := s.store.ListHabits(ctx, u.ID)
	if err != nil {
		writeStoreError(w, err, "habits")
		return
	}

	anchor := s.anchor(u)
	out := make([]habitDTO, 0, len(habits))
	for _, h := range habits {
		out = append(out, s.toDTO(h, anchor))
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/users/{userID}/habits
func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := s.store.GetUser(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}

	var req habitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h := model.Habit{UserID: u.ID, Active: true}
	req.apply(&h)

	if err := validate.Habit(&h); err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	if err := s.store.CreateHabit(ctx, &h); err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	s.feeds.Invalidate(ctx, u.ID)

	appLog.Info("habit created", "user_id", u.ID, "habit_id", h.ID)
	writeJSON(w, http.StatusCreated, s.toDTO(h, s.anchor(u)))
}

// GET /api/habits/{habitID}
func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h, err := s.store.GetHabit(ctx, chi.URLParam(r, "habitID"))
	if err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	u, err := s.store.GetUser(ctx, h.UserID)
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(*h, s.anchor(u)))
}

// PUT /api/habits/{habitID}
func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h, err := s.store.GetHabit(ctx, chi.URLParam(r, "habitID"))
	if err != nil {
		writeStoreError(w, err, "habit")
		return
	}

	var req habitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.apply(h)

	if err := validate.Habit(h); err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	if err := s.store.UpdateHabit(ctx, h); err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	s.feeds.Invalidate(ctx, h.UserID)

	u, err := s.store.GetUser(ctx, h.UserID)
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(*h, s.anchor(u)))
}

// DELETE /api/habits/{habitID}
func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h, err := s.store.GetHabit(ctx, chi.URLParam(r, "habitID"))
	if err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	if err := s.store.DeleteHabit(ctx, h.ID); err != nil {
		writeStoreError(w, err, "habit")
		return
	}
	s.feeds.Invalidate(ctx, h.UserID)

	appLog.Info("habit deleted", "user_id", h.UserID, "habit_id", h.ID)
	w.WriteHeader(http.StatusNoContent)
}

type completionRequest struct {
	CompletedAt  *time.Time `json:"completedAt"`
	ScheduledFor *time.Time `json:"scheduledFor"`
	Notes        string     `json:"notes"`
}

// POST /api/habits/{habitID}/completions
func (s *Server) handleCreateCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h, err := s.store.GetHabit(ctx, chi.URLParam(r, "habitID"))
	if err != nil {
		writeStoreError(w, err, "habit")
		return
	}

	var req completionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := model.Completion{HabitID: h.ID, UserID: h.UserID, Notes: req.Notes}
	if req.CompletedAt != nil {
		c.CompletedAt = req.CompletedAt.UTC()
	}
	if req.ScheduledFor != nil {
		c.ScheduledFor = req.ScheduledFor.UTC()
	}
	if err := validate.Completion(&c); err != nil {
		writeStoreError(w, err, "completion")
		return
	}
	if err := s.store.CreateCompletion(ctx, &c); err != nil {
		writeStoreError(w, err, "completion")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
