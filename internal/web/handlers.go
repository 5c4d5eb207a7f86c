package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"groovecal/internal/config"
	appLog "groovecal/internal/log"
	"groovecal/internal/model"
	"groovecal/internal/schedule"
	"groovecal/internal/validate"
)

// handleFeed serves a user's habit calendar.
//
// GET /api/calendar/feed/{userID}.ics
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	f, err := s.feeds.Feed(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Filename+`"`)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Body)
}

type scheduleResponse struct {
	UserID   string                 `json:"userId"`
	Timezone string                 `json:"timezone"`
	Start    string                 `json:"start"`
	End      string                 `json:"end"`
	Events   []model.ScheduledEvent `json:"events"`
	Unplaced []schedule.Unplaced    `json:"unplaced"`
}

// handleSchedule returns the generated schedule as JSON.
//
// GET /api/users/{userID}/schedule?start=2024-01-01&end=2024-01-31
//   - start/end: inclusive calendar dates in the user's zone
//   - days:      window length when only start is given
//
// Without parameters the feed window (today plus the horizon) is used.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()

	var (
		u     *model.User
		res   schedule.Result
		err   error
		start time.Time
		end   time.Time
	)

	if q.Get("start") == "" && q.Get("end") == "" {
		u, res, err = s.feeds.CurrentSchedule(ctx, userID)
		if err == nil {
			start, end = s.feeds.Window(u, s.now())
		}
	} else {
		start, end, err = parseRange(q.Get("start"), q.Get("end"), parseIntDefault(q.Get("days"), s.horizonDays()))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		u, res, err = s.feeds.Schedule(ctx, userID, start, end)
	}
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}

	events := res.Events
	if events == nil {
		events = []model.ScheduledEvent{}
	}
	unplaced := res.Unplaced
	if unplaced == nil {
		unplaced = []schedule.Unplaced{}
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		UserID:   u.ID,
		Timezone: s.feeds.Location(u).String(),
		Start:    start.Format(time.DateOnly),
		End:      end.Format(time.DateOnly),
		Events:   events,
		Unplaced: unplaced,
	})
}

type rangeError string

func (e rangeError) Error() string { return string(e) }

// parseRange resolves the start/end/days query parameters into an
// inclusive date range.
func parseRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	if startStr == "" {
		return time.Time{}, time.Time{}, rangeError("start is required when end is given")
	}
	start, err := time.Parse(time.DateOnly, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, rangeError("start must be YYYY-MM-DD")
	}

	var end time.Time
	if endStr == "" {
		if days < 0 {
			return time.Time{}, time.Time{}, rangeError("days must not be negative")
		}
		end = start.AddDate(0, 0, days)
	} else {
		end, err = time.Parse(time.DateOnly, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, rangeError("end must be YYYY-MM-DD")
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, rangeError("end must not be before start")
	}
	if end.Sub(start) > config.MaxHorizonDays*24*time.Hour {
		return time.Time{}, time.Time{}, rangeError("range exceeds " + strconv.Itoa(config.MaxHorizonDays) + " days")
	}
	return start, end, nil
}

func (s *Server) horizonDays() int {
	if s.cfg == nil || s.cfg.HorizonDays <= 0 {
		return config.DefaultHorizonDays
	}
	return s.cfg.HorizonDays
}

// POST /api/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if !decodeJSON(w, r, &u) {
		return
	}
	u.ID = ""
	u.CreatedAt, u.UpdatedAt = time.Time{}, time.Time{}

	if err := validate.User(&u); err != nil {
		writeStoreError(w, err, "user")
		return
	}
	if err := s.store.CreateUser(r.Context(), &u); err != nil {
		writeStoreError(w, err, "user")
		return
	}

	appLog.Info("user created", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

// GET /api/users/{userID}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type workHoursBody struct {
	WorkHours *model.WorkHours `json:"workHours"`
}

// GET /api/users/{userID}/work-hours
func (s *Server) handleGetWorkHours(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeStoreError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, workHoursBody{WorkHours: u.WorkHours})
}

// PUT /api/users/{userID}/work-hours
//
// A null workHours clears the schedule, leaving every day free.
func (s *Server) handlePutWorkHours(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	var body workHoursBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.WorkHours(body.WorkHours); err != nil {
		writeStoreError(w, err, "user")
		return
	}
	if err := s.store.UpdateWorkHours(ctx, userID, body.WorkHours); err != nil {
		writeStoreError(w, err, "user")
		return
	}
	s.feeds.Invalidate(ctx, userID)

	writeJSON(w, http.StatusOK, body)
}

// GET /api/users/{userID}/completions
func (s *Server) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		writeStoreError(w, err, "user")
		return
	}
	completions, err := s.store.ListCompletions(ctx, userID)
	if err != nil {
		writeStoreError(w, err, "completions")
		return
	}
	if completions == nil {
		completions = []model.Completion{}
	}
	writeJSON(w, http.StatusOK, completions)
}
