// Package feed turns stored habits into schedules and calendar feeds.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"groovecal/internal/cache"
	"groovecal/internal/ics"
	appLog "groovecal/internal/log"
	"groovecal/internal/metrics"
	"groovecal/internal/model"
	"groovecal/internal/schedule"
	"groovecal/internal/store"
)

// DefaultHorizonDays is the feed window length after today.
const DefaultHorizonDays = 30

// Options tunes a Service. Zero values select defaults.
type Options struct {
	HorizonDays int
	// Fallback is used for users whose timezone cannot be loaded.
	Fallback *time.Location
	CacheTTL time.Duration
	Now      func() time.Time
	Renderer *ics.Renderer
}

// Service generates schedules and feeds for stored users.
type Service struct {
	store store.Store
	cache cache.Cache
	opts  Options

	// gens counts invalidations per user. It is part of every cache key so
	// a run that started before Invalidate cannot repopulate the cache
	// with its stale result.
	mu   sync.Mutex
	gens map[string]uint64
}

// Feed is a rendered calendar ready to be served.
type Feed struct {
	Body        []byte
	Filename    string
	ContentType string
	Events      int
}

func NewService(st store.Store, c cache.Cache, opts Options) *Service {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.Fallback == nil {
		opts.Fallback = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Renderer == nil {
		opts.Renderer = &ics.Renderer{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{store: st, cache: c, opts: opts, gens: map[string]uint64{}}
}

// Location returns the user's zone, or the fallback zone if the user's
// timezone is unknown.
func (s *Service) Location(u *model.User) *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || u.Timezone == "" {
		if u.Timezone != "" {
			appLog.Error("unknown user timezone; using fallback", err, "user_id", u.ID, "timezone", u.Timezone)
		}
		return s.opts.Fallback
	}
	return loc
}

// Window returns the feed window for u at now: today in the user's zone
// through today plus the horizon, both as local midnights.
func (s *Service) Window(u *model.User, now time.Time) (start, end time.Time) {
	loc := s.Location(u)
	y, m, d := now.In(loc).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, s.opts.HorizonDays)
}

// Schedule returns the user's schedule for the calendar dates of start and
// end (inclusive), interpreted in the user's zone.
func (s *Service) Schedule(ctx context.Context, userID string, start, end time.Time) (*model.User, schedule.Result, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, schedule.Result{}, err
	}
	res, err := s.scheduleFor(ctx, u, start, end)
	return u, res, err
}

// CurrentSchedule is Schedule over the user's current window.
func (s *Service) CurrentSchedule(ctx context.Context, userID string) (*model.User, schedule.Result, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, schedule.Result{}, err
	}
	start, end := s.Window(u, s.opts.Now())
	res, err := s.scheduleFor(ctx, u, start, end)
	return u, res, err
}

func (s *Service) scheduleFor(ctx context.Context, u *model.User, start, end time.Time) (schedule.Result, error) {
	loc := s.Location(u)
	start = inLocation(start, loc)
	end = inLocation(end, loc)
	key := scheduleKey(u.ID, s.generation(u.ID), start, end)

	if data, ok := s.cache.Get(ctx, key); ok {
		var res schedule.Result
		if err := json.Unmarshal(data, &res); err == nil {
			metrics.ScheduleCache.WithLabelValues("hit").Inc()
			restoreLocation(&res, loc)
			return res, nil
		}
		appLog.Debug("discarding undecodable cached schedule", "key", key)
	}
	metrics.ScheduleCache.WithLabelValues("miss").Inc()

	habits, err := s.store.ListHabits(ctx, u.ID)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("load habits: %w", err)
	}
	completions, err := s.store.ListCompletions(ctx, u.ID)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("load completions: %w", err)
	}

	res := schedule.Generate(schedule.Input{
		User:        *u,
		Habits:      habits,
		Completions: completions,
		Start:       start,
		End:         end,
	})
	metrics.EventsScheduled.Add(float64(len(res.Events)))
	metrics.HabitsUnplaced.Add(float64(len(res.Unplaced)))
	if len(res.Unplaced) > 0 {
		appLog.Debug("habits without a free slot", "user_id", u.ID, "count", len(res.Unplaced))
	}

	if data, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, key, data, s.opts.CacheTTL)
	}
	return res, nil
}

// Feed renders the user's current window as an iCalendar feed.
func (s *Service) Feed(ctx context.Context, userID string) (*Feed, error) {
	began := time.Now()
	u, res, err := s.CurrentSchedule(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(u, res, began), nil
}

// FeedRange renders the dates from start through end (inclusive) instead of
// the current window.
func (s *Service) FeedRange(ctx context.Context, userID string, start, end time.Time) (*Feed, error) {
	began := time.Now()
	u, res, err := s.Schedule(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return s.render(u, res, began), nil
}

func (s *Service) render(u *model.User, res schedule.Result, began time.Time) *Feed {
	body := s.opts.Renderer.Render(res.Events, ics.CalendarName(u.Name), s.Location(u).String())

	metrics.FeedsRendered.Inc()
	metrics.FeedRenderSeconds.Observe(time.Since(began).Seconds())
	appLog.Info("feed rendered", "user_id", u.ID, "events", len(res.Events), "unplaced", len(res.Unplaced))

	return &Feed{
		Body:        []byte(body),
		Filename:    ics.Filename(u.Name),
		ContentType: ics.ContentType,
		Events:      len(res.Events),
	}
}

// Invalidate drops every cached schedule of a user. Call it after any
// change to the user's habits or work hours.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()
	s.cache.DeletePrefix(ctx, userPrefix(userID))
}

// WarmAll pre-generates the current window of every user. Failures are
// logged per user and do not stop the run; the joined error is returned.
func (s *Service) WarmAll(ctx context.Context) (int, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	warmed := 0
	for i := range users {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		u := &users[i]
		start, end := s.Window(u, s.opts.Now())
		if _, err := s.scheduleFor(ctx, u, start, end); err != nil {
			appLog.Error("warm schedule failed", err, "user_id", u.ID)
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
			continue
		}
		warmed++
	}
	return warmed, errors.Join(errs...)
}

func userPrefix(userID string) string {
	return cache.KeyPrefix + "schedule:" + userID + ":"
}

func (s *Service) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

func scheduleKey(userID string, gen uint64, start, end time.Time) string {
	return userPrefix(userID) + "g" + strconv.FormatUint(gen, 10) + ":" + start.Format(time.DateOnly) + ":" + end.Format(time.DateOnly)
}

// inLocation keeps t's calendar date and moves it to midnight in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// restoreLocation puts decoded times back into loc; JSON only keeps offsets.
func restoreLocation(res *schedule.Result, loc *time.Location) {
	if res.Events == nil {
		res.Events = []model.ScheduledEvent{}
	}
	for i := range res.Events {
		res.Events[i].Start = res.Events[i].Start.In(loc)
		res.Events[i].End = res.Events[i].End.In(loc)
	}
	for i := range res.Unplaced {
		res.Unplaced[i].Date = res.Unplaced[i].Date.In(loc)
	}
}
