// Package web exposes the reminder engine over a small JSON API plus an
// ICS feed. It is a thin host around the pure engine packages: every
// request resolves "now" once and threads it through explicitly.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"remindcal/internal/config"
	"remindcal/internal/ics"
	appLog "remindcal/internal/log"
	"remindcal/internal/model"
	"remindcal/internal/notify"
	"remindcal/internal/recur"
	"remindcal/internal/tz"
)

// Server provides HTTP access to reminders, occurrences and the computed
// notification schedule.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// In-memory cache for expansion results so UI polling does not redo
	// the full expand/schedule work on every request.
	expandMu    sync.RWMutex
	expandCache *expandCache
}

const expandCacheTTL = 30 * time.Second

// expandCache holds one expansion pass and the parameters it answered.
type expandCache struct {
	days      int
	backfill  int
	items     []ics.ReminderEvents
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth if configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe starts the HTTP server bound to cfg.Listen.
func ListenAndServe(cfg *config.Config) error {
	s := NewServer(cfg)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="remindcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/reminders", s.handleReminders)
	s.mux.HandleFunc("/api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendarFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// reminderDTO is a JSON-friendly view of one configured reminder.
type reminderDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	DueDate  string `json:"due_date"`
	DueTime  string `json:"due_time,omitempty"`
	Timezone string `json:"timezone"`
	Repeats  string `json:"repeats"`
	Next     string `json:"next,omitempty"`
}

// handleReminders lists the validated reminders with a human-readable
// recurrence phrase and the next upcoming due instant.
func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	anchors, errs := s.cfg.Anchors()
	for _, err := range errs {
		appLog.Warn("api reminders: skipping invalid definition", "reason", err.Error())
	}

	dtos := make([]reminderDTO, 0, len(anchors))
	for _, rem := range anchors {
		dto := reminderDTO{
			ID:       rem.ID,
			Title:    rem.Title,
			DueDate:  rem.DueDate.String(),
			DueTime:  rem.DueTime,
			Timezone: rem.Timezone,
			Repeats:  recur.Describe(rem.Recurrence, "en", tz.LocationOrDevice(rem.Timezone)),
		}
		occs, err := recur.ExpandReminder(rem, now, s.cfg.MaxOccurrences)
		if err == nil {
			for _, occ := range occs {
				if occ.NextUpcoming {
					dto.Next = occ.Instant.Format(time.RFC3339)
					break
				}
			}
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reminders": dtos,
		"skipped":   len(errs),
	})
}

// occurrenceDTO is a JSON-friendly view of one expanded occurrence.
type occurrenceDTO struct {
	ReminderID   string    `json:"reminder_id"`
	Title        string    `json:"title"`
	Index        int       `json:"index"`
	Instant      time.Time `json:"instant"`
	Local        string    `json:"local"`
	NextUpcoming bool      `json:"next_upcoming,omitempty"`
}

// handleOccurrences returns expanded occurrences inside a time window.
//
// GET /api/occurrences?days=14&backfill=1
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	days, backfill := s.windowParams(r)
	now := time.Now()
	loc := tz.LocationOrDevice(s.cfg.Timezone)

	items := s.expand(now, days, backfill)

	dtos := make([]occurrenceDTO, 0)
	for _, item := range items {
		for _, occ := range item.Occurrences {
			dtos = append(dtos, occurrenceDTO{
				ReminderID:   item.Reminder.ID,
				Title:        item.Reminder.Title,
				Index:        occ.Index,
				Instant:      occ.Instant,
				Local:        occ.Instant.In(loc).Format("2006-01-02 15:04"),
				NextUpcoming: occ.NextUpcoming,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"occurrences":      dtos,
		"range_start":      now.AddDate(0, 0, -backfill).Format(time.RFC3339),
		"range_end":        now.AddDate(0, 0, days).Format(time.RFC3339),
		"display_timezone": loc.String(),
	})
}

// notificationDTO is a JSON-friendly view of one scheduled notification.
type notificationDTO struct {
	ReminderID      string    `json:"reminder_id"`
	Title           string    `json:"title"`
	OccurrenceIndex int       `json:"occurrence_index"`
	Label           string    `json:"label,omitempty"`
	Relation        string    `json:"relation"`
	Minutes         int       `json:"minutes,omitempty"`
	FireAt          time.Time `json:"fire_at"`
	FireAtLocal     string    `json:"fire_at_local"`
}

// handleSchedule returns the notification fire times for the window. Only
// future instants appear; the engine never schedules anything past.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	days, backfill := s.windowParams(r)
	now := time.Now()
	loc := tz.LocationOrDevice(s.cfg.Timezone)

	items := s.expand(now, days, backfill)

	dtos := make([]notificationDTO, 0)
	for _, item := range items {
		for _, n := range notify.ComputeSchedule(item.Occurrences, item.Reminder.Offsets, now) {
			dtos = append(dtos, notificationDTO{
				ReminderID:      item.Reminder.ID,
				Title:           item.Reminder.Title,
				OccurrenceIndex: n.OccurrenceIndex,
				Label:           n.Offset.Label,
				Relation:        string(n.Offset.Relation),
				Minutes:         n.Offset.Minutes,
				FireAt:          n.FireAt,
				FireAtLocal:     n.FireAt.In(loc).Format("2006-01-02 15:04"),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": dtos,
		"computed_at":   now.Format(time.RFC3339),
	})
}

// handleCalendarFeed serves the expanded horizon as ICS.
//
// GET /calendar.ics?mode=occurrences (default) or ?mode=rules
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	var serialized string
	switch r.URL.Query().Get("mode") {
	case "", "occurrences":
		days, backfill := s.windowParams(r)
		items := s.expand(now, days, backfill)
		serialized = ics.ExportOccurrences(items, now).Serialize()
	case "rules":
		anchors, errs := s.cfg.Anchors()
		for _, err := range errs {
			appLog.Warn("calendar feed: skipping invalid definition", "reason", err.Error())
		}
		cal, err := ics.ExportRules(anchors, now)
		if err != nil {
			appLog.Error("calendar feed: rule export failed", err)
			writeError(w, http.StatusInternalServerError, "failed to export rules")
			return
		}
		serialized = cal.Serialize()
	default:
		writeError(w, http.StatusBadRequest, "unknown mode")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(serialized))
}

// expand runs (or serves from cache) one expansion pass over all valid
// reminders, trimmed to the [now-backfill, now+days] window. The next
// upcoming occurrence is kept even when it lies beyond the window so
// clients can always show "next due".
func (s *Server) expand(now time.Time, days, backfill int) []ics.ReminderEvents {
	s.expandMu.RLock()
	ec := s.expandCache
	s.expandMu.RUnlock()
	if ec != nil && ec.days == days && ec.backfill == backfill && now.Sub(ec.updatedAt) < expandCacheTTL {
		return ec.items
	}

	anchors, errs := s.cfg.Anchors()
	for _, err := range errs {
		appLog.Warn("expand: skipping invalid definition", "reason", err.Error())
	}

	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	items := make([]ics.ReminderEvents, 0, len(anchors))
	for _, rem := range anchors {
		occs, err := recur.ExpandReminder(rem, now, s.cfg.MaxOccurrences)
		if err != nil {
			appLog.Error("expand failed", err, "reminder", rem.ID)
			continue
		}

		kept := make([]model.Occurrence, 0, len(occs))
		for _, occ := range occs {
			inWindow := !occ.Instant.Before(rangeStart) && !occ.Instant.After(rangeEnd)
			if inWindow || occ.NextUpcoming {
				kept = append(kept, occ)
			}
		}
		items = append(items, ics.ReminderEvents{Reminder: rem, Occurrences: kept})
	}

	s.expandMu.Lock()
	s.expandCache = &expandCache{days: days, backfill: backfill, items: items, updatedAt: now}
	s.expandMu.Unlock()

	return items
}

func (s *Server) windowParams(r *http.Request) (days, backfill int) {
	q := r.URL.Query()
	days = parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill = parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}
	return days, backfill
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
