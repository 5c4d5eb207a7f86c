package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groovecal/internal/cache"
	"groovecal/internal/config"
	"groovecal/internal/feed"
	"groovecal/internal/ics"
	"groovecal/internal/model"
	"groovecal/internal/store"
)

// 2024-01-01 is a Monday.
var now = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	cfg.HorizonDays = 2
	if mutate != nil {
		mutate(cfg)
	}

	svc := feed.NewService(st, cache.NewMemory(), feed.Options{
		HorizonDays: cfg.HorizonDays,
		CacheTTL:    time.Hour,
		Now:         func() time.Time { return now },
		Renderer: &ics.Renderer{
			Now:    func() time.Time { return now },
			Suffix: func() string { return "fixed00" },
		},
	})
	s := NewServer(cfg, st, svc)
	s.now = func() time.Time { return now }
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createUser(t *testing.T, h http.Handler, email string) model.User {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/users", map[string]any{
		"email":    email,
		"name":     "Ada Lovelace",
		"timezone": "UTC",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.User](t, rec)
}

func runHabit() map[string]any {
	return map[string]any{
		"name":      "Morning run",
		"category":  "activities",
		"priority":  "high",
		"duration":  30,
		"frequency": map[string]any{"type": "daily", "interval": 1},
	}
}

func createHabit(t *testing.T, h http.Handler, userID string, body map[string]any) habitDTO {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/users/"+userID+"/habits", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[habitDTO](t, rec)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)

	rec := do(t, h, http.MethodGet, "/api/users/nope", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/users/nope", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/users/nope", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "ab"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	do(t, h, http.MethodGet, "/health", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "groovecal_http_requests_total")
}

func TestUsers(t *testing.T) {
	h := newTestServer(t, nil)

	u := createUser(t, h, "ada@example.com")
	assert.NotEmpty(t, u.ID)

	rec := do(t, h, http.MethodGet, "/api/users/"+u.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", decode[model.User](t, rec).Email)

	rec = do(t, h, http.MethodPost, "/api/users", map[string]any{
		"email": "ada@example.com", "name": "Again", "timezone": "UTC",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users", map[string]any{
		"email": "not-an-email", "name": "Bob", "timezone": "UTC",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode[errResp](t, rec).Field)

	rec = do(t, h, http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUser_BadJSON(t *testing.T) {
	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkHours(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")

	rec := do(t, h, http.MethodGet, "/api/users/"+u.ID+"/work-hours", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[workHoursBody](t, rec).WorkHours)

	rec = do(t, h, http.MethodPut, "/api/users/"+u.ID+"/work-hours", map[string]any{
		"workHours": map[string]any{"monday": map[string]string{"start": "17:00", "end": "09:00"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "workHours.monday.end", decode[errResp](t, rec).Field)

	rec = do(t, h, http.MethodPut, "/api/users/"+u.ID+"/work-hours", map[string]any{
		"workHours": map[string]any{"monday": map[string]string{"start": "09:00", "end": "17:00"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/work-hours", nil)
	wh := decode[workHoursBody](t, rec).WorkHours
	require.NotNil(t, wh)
	require.NotNil(t, wh.Monday)
	assert.Equal(t, "09:00", wh.Monday.Start)

	rec = do(t, h, http.MethodPut, "/api/users/missing/work-hours", map[string]any{"workHours": nil})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHabits_CRUD(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")

	created := createHabit(t, h, u.ID, runHabit())
	assert.Equal(t, u.ID, created.UserID)
	assert.True(t, created.Active)
	assert.Equal(t, []string{}, created.Tags)
	assert.Contains(t, created.RRule, "FREQ=DAILY")

	rec := do(t, h, http.MethodGet, "/api/users/"+u.ID+"/habits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]habitDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	update := runHabit()
	update["name"] = "Evening run"
	update["active"] = false
	update["frequency"] = map[string]any{"type": "weekly", "interval": 1, "weekdays": []int{1, 3}}
	rec = do(t, h, http.MethodPut, "/api/habits/"+created.ID, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[habitDTO](t, rec)
	assert.Equal(t, "Evening run", updated.Name)
	assert.False(t, updated.Active)
	assert.Contains(t, updated.RRule, "BYDAY=MO,WE")

	rec = do(t, h, http.MethodGet, "/api/habits/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Evening run", decode[habitDTO](t, rec).Name)

	rec = do(t, h, http.MethodDelete, "/api/habits/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/habits/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/habits/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHabits_Validation(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")

	body := runHabit()
	body["duration"] = 0
	rec := do(t, h, http.MethodPost, "/api/users/"+u.ID+"/habits", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duration", decode[errResp](t, rec).Field)

	rec = do(t, h, http.MethodPost, "/api/users/missing/habits", runHabit())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeed(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")
	createHabit(t, h, u.ID, runHabit())

	rec := do(t, h, http.MethodGet, "/api/calendar/feed/"+u.ID+".ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Ada-Lovelace-groove-habits.ics"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))

	rec = do(t, h, http.MethodGet, "/api/calendar/feed/missing.ics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeed_ReflectsHabitChanges(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")
	createHabit(t, h, u.ID, runHabit())

	rec := do(t, h, http.MethodGet, "/api/calendar/feed/"+u.ID+".ics", nil)
	require.Equal(t, 3, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	second := runHabit()
	second["name"] = "Read"
	createHabit(t, h, u.ID, second)

	rec = do(t, h, http.MethodGet, "/api/calendar/feed/"+u.ID+".ics", nil)
	assert.Equal(t, 6, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
}

func TestSchedule(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")
	created := createHabit(t, h, u.ID, runHabit())

	rec := do(t, h, http.MethodGet, "/api/users/"+u.ID+"/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[scheduleResponse](t, rec)
	assert.Equal(t, "2024-01-01", resp.Start)
	assert.Equal(t, "2024-01-03", resp.End)
	assert.Equal(t, "UTC", resp.Timezone)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, created.ID, resp.Events[0].HabitID)
	assert.Equal(t, time.Date(2024, time.January, 1, 7, 0, 0, 0, time.UTC), resp.Events[0].Start.UTC())
	assert.Empty(t, resp.Unplaced)

	rec = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/schedule?start=2024-02-01&end=2024-02-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[scheduleResponse](t, rec).Events, 10)

	rec = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/schedule?start=2024-02-01&days=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[scheduleResponse](t, rec)
	assert.Equal(t, "2024-02-05", resp.End)
	assert.Len(t, resp.Events, 5)
}

func TestSchedule_BadRange(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")

	for _, q := range []string{
		"end=2024-01-05",
		"start=yesterday",
		"start=2024-01-05&end=2024-01-01",
		"start=2024-01-01&end=2026-01-01",
		"start=2024-01-01&end=soon",
	} {
		rec := do(t, h, http.MethodGet, "/api/users/"+u.ID+"/schedule?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec := do(t, h, http.MethodGet, "/api/users/missing/schedule", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompletions(t *testing.T) {
	h := newTestServer(t, nil)
	u := createUser(t, h, "ada@example.com")
	created := createHabit(t, h, u.ID, runHabit())

	rec := do(t, h, http.MethodPost, "/api/habits/"+created.ID+"/completions", map[string]any{
		"completedAt": "2024-01-01T07:30:00Z",
		"notes":       "felt great",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[model.Completion](t, rec)
	assert.Equal(t, u.ID, c.UserID)
	assert.Equal(t, created.ID, c.HabitID)

	rec = do(t, h, http.MethodPost, "/api/habits/"+created.ID+"/completions", map[string]any{
		"notes": strings.Repeat("x", 501),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	verr := decode[errResp](t, rec)
	assert.Equal(t, "notes", verr.Field)
	assert.Equal(t, "Must be no more than 500 characters", verr.Message)

	rec = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/completions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Completion](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "felt great", list[0].Notes)

	rec = do(t, h, http.MethodPost, "/api/habits/missing/completions", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseRange(t *testing.T) {
	start, end, err := parseRange("2024-03-01", "", 0)
	require.NoError(t, err)
	assert.Equal(t, start, end)

	_, _, err = parseRange("2024-03-01", "", -1)
	assert.Error(t, err)
}
