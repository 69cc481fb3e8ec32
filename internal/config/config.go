package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"remindcal/internal/model"
	"remindcal/internal/recur"
	"remindcal/internal/tz"
)

// RecurrenceConfig is the YAML shape of a recurrence rule. The end
// condition is derived from which end field is present: end_date means
// "until that date", end_occurrences means "that many occurrences", and
// neither means the rule never ends. Setting both is rejected.
type RecurrenceConfig struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	Interval int    `yaml:"interval,omitempty" json:"interval,omitempty"`
	// Weekdays use 0=Sunday .. 6=Saturday; only meaningful for "weekly".
	Weekdays []int `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`
	// EndDate accepts RFC 3339 ("2026-01-03T09:00:00Z") or a plain date
	// ("2026-01-03"), which is read as the end of that day in the
	// reminder's timezone so an occurrence on the end date still fires.
	EndDate        string `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	EndOccurrences int    `yaml:"end_occurrences,omitempty" json:"end_occurrences,omitempty"`
}

// ReminderConfig is one reminder definition as stored in the config file.
type ReminderConfig struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`

	// DueDate is YYYY-MM-DD. DueTime is an optional 24-hour "HH:MM";
	// empty means a date-only reminder anchored at local midnight.
	DueDate string `yaml:"due_date" json:"due_date"`
	DueTime string `yaml:"due_time,omitempty" json:"due_time,omitempty"`

	// Timezone is an IANA identifier. Empty means the device zone.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	Recurrence *RecurrenceConfig          `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
	Notify     []model.NotificationOffset `yaml:"notify,omitempty" json:"notify,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the JSON API and ICS feed.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for display projection in API
	// responses and the ICS feed. Empty means the device zone.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	// RefreshCron is a cron-style schedule (e.g. "*/5 * * * *") driving
	// the periodic schedule recomputation.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how far ahead occurrences are expanded by default.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// MaxOccurrences caps expansion per reminder. This is the hard safety
	// bound that keeps never-ending rules finite.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	Reminders []ReminderConfig `yaml:"reminders" json:"reminders"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Timezone:       "",
		RefreshCron:    "*/5 * * * *",
		HorizonDays:    14,
		MaxOccurrences: recur.DefaultMaxCount,
		Reminders:      []ReminderConfig{},
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 14
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = recur.DefaultMaxCount
	}
	if c.Reminders == nil {
		c.Reminders = []ReminderConfig{}
	}
}

// Anchor converts a reminder definition into the validated engine shape.
// All boundary validation happens here, once: date and time formats, the
// timezone identifier, and the recurrence rule. Internal code only ever
// sees the validated model.
func (r ReminderConfig) Anchor() (model.ReminderAnchor, error) {
	var out model.ReminderAnchor

	if r.ID == "" {
		return out, fmt.Errorf("reminder %q: missing id", r.Title)
	}

	due, err := model.ParseDate(r.DueDate)
	if err != nil {
		return out, fmt.Errorf("reminder %s: %w", r.ID, err)
	}

	if r.DueTime != "" {
		if _, _, err := recur.ParseClock(r.DueTime); err != nil {
			return out, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
	}

	tzID := r.Timezone
	if tzID == "" {
		tzID = tz.DeviceZone()
	}
	if !tz.IsValid(tzID) {
		return out, fmt.Errorf("reminder %s: %w: %q", r.ID, tz.ErrInvalidTimezone, r.Timezone)
	}

	rule := model.RecurrenceRule{Pattern: model.PatternNone}
	if r.Recurrence != nil {
		rule, err = r.Recurrence.rule(tzID)
		if err != nil {
			return out, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
	}

	for _, off := range r.Notify {
		switch off.Relation {
		case model.RelationBefore, model.RelationAfter, model.RelationExact:
		default:
			return out, fmt.Errorf("reminder %s: unknown notify relation %q", r.ID, off.Relation)
		}
		if off.Minutes < 0 {
			return out, fmt.Errorf("reminder %s: negative notify minutes %d", r.ID, off.Minutes)
		}
	}

	out = model.ReminderAnchor{
		ID:         r.ID,
		Title:      r.Title,
		DueDate:    due,
		DueTime:    r.DueTime,
		Timezone:   tzID,
		Recurrence: rule,
		Offsets:    r.Notify,
	}
	return out, nil
}

func (rc RecurrenceConfig) rule(tzID string) (model.RecurrenceRule, error) {
	rule := model.RecurrenceRule{
		Pattern:  model.Pattern(rc.Pattern),
		Interval: rc.Interval,
		Weekdays: rc.Weekdays,
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}

	if rc.EndDate != "" && rc.EndOccurrences > 0 {
		return rule, fmt.Errorf("%w: both end_date and end_occurrences set", recur.ErrInvalidRecurrenceRule)
	}
	switch {
	case rc.EndDate != "":
		end, err := parseEndDate(rc.EndDate, tzID)
		if err != nil {
			return rule, err
		}
		rule.EndCondition = model.EndOnDate
		rule.EndDate = &end
	case rc.EndOccurrences > 0:
		rule.EndCondition = model.EndAfterOccurrences
		rule.EndOccurrences = rc.EndOccurrences
	default:
		rule.EndCondition = model.EndNever
	}

	if err := recur.ValidateRule(rule); err != nil {
		return rule, err
	}
	return rule, nil
}

func parseEndDate(s, tzID string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end_date %q", s)
	}
	// Plain dates mean "through the end of that day" in the reminder's zone.
	loc := tz.LocationOrDevice(tzID)
	end := tz.FromLocation(tz.LocalDateTime{
		Year: d.Year, Month: d.Month, Day: d.Day,
		Hour: 23, Minute: 59, Second: 59,
	}, loc)
	return end, nil
}

// FromAnchor converts a validated engine shape back into a config-file
// definition, the inverse of Anchor. Used when importing reminders from
// external sources (ICS).
func FromAnchor(a model.ReminderAnchor) ReminderConfig {
	rc := ReminderConfig{
		ID:       a.ID,
		Title:    a.Title,
		DueDate:  a.DueDate.String(),
		DueTime:  a.DueTime,
		Timezone: a.Timezone,
		Notify:   a.Offsets,
	}

	if a.Recurrence.IsRecurring() {
		rec := &RecurrenceConfig{
			Pattern:  string(a.Recurrence.Pattern),
			Interval: a.Recurrence.Interval,
			Weekdays: a.Recurrence.Weekdays,
		}
		switch a.Recurrence.EndCondition {
		case model.EndOnDate:
			if a.Recurrence.EndDate != nil {
				rec.EndDate = a.Recurrence.EndDate.UTC().Format(time.RFC3339)
			}
		case model.EndAfterOccurrences:
			rec.EndOccurrences = a.Recurrence.EndOccurrences
		}
		rc.Recurrence = rec
	}
	return rc
}

// Anchors converts every configured reminder, returning the valid ones
// alongside per-reminder errors. One bad definition never hides the rest.
func (c *Config) Anchors() ([]model.ReminderAnchor, []error) {
	anchors := make([]model.ReminderAnchor, 0, len(c.Reminders))
	var errs []error
	for _, rc := range c.Reminders {
		a, err := rc.Anchor()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		anchors = append(anchors, a)
	}
	return anchors, errs
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600,
//     parent directory created) and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename in
// the same directory) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".remindcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
