package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"remindcal/internal/config"
	appLog "remindcal/internal/log"
	"remindcal/internal/notify"
	"remindcal/internal/recur"
	"remindcal/internal/tz"
	"remindcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	importPath string
	verbose    bool
}

func main() {
	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("remindcal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", displayZone(conf),
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"max_occurrences", conf.MaxOccurrences,
		"reminder_count", len(conf.Reminders),
	)

	if flags.importPath != "" {
		if err := runImport(conf, flags.configPath, flags.importPath); err != nil {
			appLog.Error("ics import failed", err, "path", flags.importPath)
			os.Exit(1)
		}
	}

	if flags.once {
		if err := printSchedule(conf, time.Now()); err != nil {
			appLog.Error("schedule computation failed", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Periodic recomputation. The log output is the delivery sink here; a
	// platform notification bridge would subscribe to the same schedule.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() { refresh(conf, time.Now()) }); err != nil {
		appLog.Error("invalid refresh cron spec", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	refresh(conf, time.Now())

	go func() {
		if err := web.ListenAndServe(conf); err != nil {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()
	appLog.Info("remindcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/remindcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Compute and print the upcoming schedule, then exit")
	flag.StringVar(&cfg.importPath, "import", "", "Import reminders from an ICS file into the config")
	flag.BoolVar(&cfg.verbose, "v", false, "Enable debug logging")

	flag.Parse()
	return cfg
}

func displayZone(conf *config.Config) string {
	if conf.Timezone != "" {
		return conf.Timezone
	}
	return tz.DeviceZone()
}

// refresh recomputes the notification schedule for every reminder and logs
// what is coming up inside the horizon.
func refresh(conf *config.Config, now time.Time) {
	anchors, errs := conf.Anchors()
	for _, err := range errs {
		appLog.Warn("refresh: skipping invalid reminder", "reason", err.Error())
	}

	loc := tz.LocationOrDevice(conf.Timezone)
	horizon := now.AddDate(0, 0, conf.HorizonDays)
	total := 0

	for _, rem := range anchors {
		occs, err := recur.ExpandReminder(rem, now, conf.MaxOccurrences)
		if err != nil {
			appLog.Error("refresh: expansion failed", err, "reminder", rem.ID)
			continue
		}
		for _, n := range notify.ComputeSchedule(occs, rem.Offsets, now) {
			if n.FireAt.After(horizon) {
				continue
			}
			total++
			appLog.Info("notification scheduled",
				"reminder", rem.ID,
				"title", rem.Title,
				"fire_at", n.FireAt.In(loc).Format("2006-01-02 15:04"),
				"label", n.Offset.Label,
			)
		}
	}

	appLog.Info("refresh complete",
		"reminders", len(anchors),
		"notifications", total,
		"horizon_days", conf.HorizonDays,
	)
}

// printSchedule writes the upcoming schedule to stdout for -once runs.
func printSchedule(conf *config.Config, now time.Time) error {
	anchors, errs := conf.Anchors()
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "skipping invalid reminder: %v\n", err)
	}

	loc := tz.LocationOrDevice(conf.Timezone)

	for _, rem := range anchors {
		occs, err := recur.ExpandReminder(rem, now, conf.MaxOccurrences)
		if err != nil {
			return fmt.Errorf("reminder %s: %w", rem.ID, err)
		}

		fmt.Printf("%s  %s  (%s)\n", rem.ID, rem.Title, recur.Describe(rem.Recurrence, "en", tz.LocationOrDevice(rem.Timezone)))
		for _, occ := range occs {
			marker := " "
			if occ.NextUpcoming {
				marker = ">"
			}
			fmt.Printf("  %s %s\n", marker, occ.Instant.In(loc).Format("Mon 2006-01-02 15:04"))
		}
		for _, n := range notify.ComputeSchedule(occs, rem.Offsets, now) {
			fmt.Printf("    notify %s (%s)\n", n.FireAt.In(loc).Format("2006-01-02 15:04"), n.Offset.Label)
		}
	}
	return nil
}

// runImport merges reminders from an ICS file into the config and saves it.
func runImport(conf *config.Config, configPath, icsPath string) error {
	body, err := os.ReadFile(icsPath)
	if err != nil {
		return err
	}

	imported, err := importReminderConfigs(body)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(conf.Reminders))
	for _, r := range conf.Reminders {
		existing[r.ID] = true
	}

	added := 0
	for _, rc := range imported {
		if existing[rc.ID] {
			appLog.Warn("import: reminder already present, skipping", "id", rc.ID)
			continue
		}
		conf.Reminders = append(conf.Reminders, rc)
		added++
	}

	if added > 0 {
		if err := conf.Save(configPath); err != nil {
			return err
		}
	}
	appLog.Info("ics import complete", "imported", added, "total", len(conf.Reminders))
	return nil
}
