package main

import (
	"remindcal/internal/config"
	"remindcal/internal/ics"
)

// importReminderConfigs parses an ICS payload into config-file reminder
// definitions.
func importReminderConfigs(body []byte) ([]config.ReminderConfig, error) {
	anchors, err := ics.ImportReminders(body)
	if err != nil {
		return nil, err
	}

	out := make([]config.ReminderConfig, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, config.FromAnchor(a))
	}
	return out, nil
}
