package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "remindcal/internal/log"
	"remindcal/internal/model"
	"remindcal/internal/recur"
	"remindcal/internal/tz"
)

// ImportReminders parses an ICS payload into reminder anchors. Events the
// engine cannot represent (missing UID/DTSTART, unsupported RRULE shapes)
// are logged and skipped; one bad VEVENT never hides the rest.
func ImportReminders(body []byte) ([]model.ReminderAnchor, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics parse failed: %w", err)
	}

	reminders := make([]model.ReminderAnchor, 0)
	for _, ev := range cal.Events() {
		rem, err := importVEvent(ev)
		if err != nil {
			appLog.Warn("ics import: skipping vevent", "reason", err.Error())
			continue
		}
		reminders = append(reminders, rem)
	}
	return reminders, nil
}

func importVEvent(ev *ical.VEvent) (model.ReminderAnchor, error) {
	var out model.ReminderAnchor

	uidProp := ev.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.ID = uidProp.Value

	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}

	start, err := ev.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("missing DTSTART: %w", err)
	}

	// All-day detection and TZID capture, following DTSTART's parameters.
	allDay := false
	tzName := ""
	if dtStart := ev.GetProperty(ical.ComponentPropertyDtStart); dtStart != nil {
		if params := dtStart.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				allDay = true
			}
			if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
				tzName = tzs[0]
			}
		}
		if !strings.Contains(dtStart.Value, "T") {
			allDay = true
		}
	}

	if tzName != "" && tz.IsValid(tzName) {
		out.Timezone = tzName
		loc := tz.LocationOrDevice(tzName)
		start = start.In(loc)
	} else {
		out.Timezone = "UTC"
		start = start.UTC()
	}

	out.DueDate = model.Date{Year: start.Year(), Month: start.Month(), Day: start.Day()}
	if !allDay {
		out.DueTime = fmt.Sprintf("%02d:%02d", start.Hour(), start.Minute())
	}

	out.Recurrence = model.RecurrenceRule{Pattern: model.PatternNone}
	if rruleProp := ev.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		rule, err := recur.FromRRuleString(rruleProp.Value)
		if err != nil {
			return out, fmt.Errorf("uid %s: %w", out.ID, err)
		}
		out.Recurrence = rule
	}

	for _, alarm := range ev.Alarms() {
		trigger := alarm.GetProperty(ical.ComponentProperty("TRIGGER"))
		if trigger == nil || trigger.Value == "" {
			continue
		}
		off, err := parseTrigger(trigger.Value)
		if err != nil {
			appLog.Warn("ics import: skipping alarm", "uid", out.ID, "trigger", trigger.Value)
			continue
		}
		out.Offsets = append(out.Offsets, off)
	}

	return out, nil
}

// parseTrigger maps an ISO 8601 duration trigger ("-PT15M", "PT0S",
// "-P1D") onto a notification offset. Absolute (DATE-TIME) triggers are
// not supported.
func parseTrigger(v string) (model.NotificationOffset, error) {
	var off model.NotificationOffset

	s := strings.ToUpper(strings.TrimSpace(v))
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if !strings.HasPrefix(s, "P") {
		return off, fmt.Errorf("unsupported trigger %q", v)
	}
	s = strings.TrimPrefix(s, "P")

	datePart, timePart, _ := strings.Cut(s, "T")
	minutes := 0

	var n int
	for _, c := range datePart {
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int(c-'0')
		case c == 'D':
			minutes += n * 24 * 60
			n = 0
		case c == 'W':
			minutes += n * 7 * 24 * 60
			n = 0
		default:
			return off, fmt.Errorf("unsupported trigger %q", v)
		}
	}
	n = 0
	for _, c := range timePart {
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int(c-'0')
		case c == 'H':
			minutes += n * 60
			n = 0
		case c == 'M':
			minutes += n
			n = 0
		case c == 'S':
			// Sub-minute triggers round down to the minute.
			n = 0
		default:
			return off, fmt.Errorf("unsupported trigger %q", v)
		}
	}

	switch {
	case minutes == 0:
		off.Relation = model.RelationExact
	case negative:
		off.Relation = model.RelationBefore
		off.Minutes = minutes
	default:
		off.Relation = model.RelationAfter
		off.Minutes = minutes
	}
	return off, nil
}
