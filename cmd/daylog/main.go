package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/mkarlsen/daylog/internal/ai"
	"github.com/mkarlsen/daylog/internal/analyzer"
	"github.com/mkarlsen/daylog/internal/busday"
	"github.com/mkarlsen/daylog/internal/cache"
	"github.com/mkarlsen/daylog/internal/calendar"
	"github.com/mkarlsen/daylog/internal/config"
	"github.com/mkarlsen/daylog/internal/gaps"
	"github.com/mkarlsen/daylog/internal/store"
	"github.com/mkarlsen/daylog/internal/timeline"
	"github.com/mkarlsen/daylog/internal/tui"
	"github.com/mkarlsen/daylog/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:   "daylog",
	Short: "Turn free-text work notes into a daily timeline",
	Long:  "daylog collects plain-English notes about what you worked on, extracts time bounds and categories, and reconstructs a confidence-scored timeline of your day.",
}

var noteCmd = &cobra.Command{
	Use:   "note [text...]",
	Short: "Record a note and update today's timeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNote,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show the analyzed timeline for a day",
	RunE:  runTimeline,
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List the raw notes behind a day",
	RunE:  runNotes,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <note-id>",
	Short: "Delete a note and recompute its day",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show unaccounted time in a day",
	RunE:  runGaps,
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Interactively fill the largest open gap",
	RunE:  runFill,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the background gap watcher",
}

var watchStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gap watcher",
	RunE:  runWatchStart,
}

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running gap watcher",
	RunE:  runWatchStop,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import calendar events as explicit timeline entries",
	RunE:  runImport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	noteCmd.Flags().String("at", "", "Timestamp for the note (2006-01-02 15:04), default now")
	timelineCmd.Flags().String("date", "", "Business date (YYYY-MM-DD), default today")
	timelineCmd.Flags().Bool("refresh", false, "Recompute even when a fresh cached result exists")
	notesCmd.Flags().String("date", "", "Business date (YYYY-MM-DD), default today")
	gapsCmd.Flags().String("date", "", "Business date (YYYY-MM-DD), default today")
	importCmd.Flags().String("date", "", "Business date (YYYY-MM-DD), default today")
	importCmd.Flags().Bool("save", false, "Record imported events as notes")

	watchCmd.AddCommand(watchStartCmd)
	watchCmd.AddCommand(watchStopCmd)

	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("DAYLOG_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newProvider(cfg *config.Config, logger *slog.Logger) ai.Provider {
	switch cfg.AI.Provider {
	case "claude-cli":
		return ai.NewClaudeCLI(cfg.AI.Model, logger)
	default:
		if cfg.AI.APIKey == "" {
			logger.Warn("no API key configured, notes are analyzed without text understanding")
			return nil
		}
		return ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.Model, logger)
	}
}

func buildAnalyzer(cfg *config.Config, db *store.DB, logger *slog.Logger) (*analyzer.Analyzer, error) {
	window, err := observationWindow(cfg)
	if err != nil {
		return nil, err
	}

	c := cache.New(time.Duration(cfg.Cache.MaxAgeMinutes)*time.Minute, db, logger)
	opts := analyzer.Options{
		Timezone:     cfg.Timezone,
		DayStartHour: cfg.Day.StartHour,
		Window:       window,
	}
	return analyzer.New(db, newProvider(cfg, logger), c, opts, logger), nil
}

func observationWindow(cfg *config.Config) (timeline.Window, error) {
	sh, sm, err := config.ParseClock(cfg.Day.ObservationStart)
	if err != nil {
		return timeline.Window{}, fmt.Errorf("observation_start: %w", err)
	}
	eh, em, err := config.ParseClock(cfg.Day.ObservationEnd)
	if err != nil {
		return timeline.Window{}, fmt.Errorf("observation_end: %w", err)
	}
	return timeline.Window{StartHour: sh, StartMinute: sm, EndHour: eh, EndMinute: em}, nil
}

func gapConfig(cfg *config.Config) (gaps.Config, error) {
	window, err := observationWindow(cfg)
	if err != nil {
		return gaps.Config{}, err
	}
	return gaps.Config{
		MinGapMinutes: cfg.Gaps.MinMinutes,
		StartHour:     window.StartHour,
		StartMinute:   window.StartMinute,
		EndHour:       window.EndHour,
		EndMinute:     window.EndMinute,
		DayStartHour:  cfg.Day.StartHour,
	}, nil
}

func resolveDate(cfg *config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		if _, err := time.Parse("2006-01-02", flagValue); err != nil {
			return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", flagValue)
		}
		return flagValue, nil
	}
	return busday.DateOf(time.Now(), cfg.Timezone, cfg.Day.StartHour)
}

func runNote(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	at := time.Now()
	if v, _ := cmd.Flags().GetString("at"); v != "" {
		loc, err := busday.Location(cfg.Timezone)
		if err != nil {
			return err
		}
		at, err = time.ParseInLocation("2006-01-02 15:04", v, loc)
		if err != nil {
			return fmt.Errorf("invalid --at %q, want 2006-01-02 15:04", v)
		}
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}

	res, err := a.IngestNote(context.Background(), cfg.UserID, strings.Join(args, " "), at)
	if err != nil {
		return err
	}

	printDaily(res)
	return nil
}

func runTimeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	date, err := resolveDate(cfg, flagString(cmd, "date"))
	if err != nil {
		return err
	}
	refresh, _ := cmd.Flags().GetBool("refresh")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}

	res, err := a.AnalyzeDaily(context.Background(), cfg.UserID, date, refresh)
	if err != nil {
		return err
	}

	printDaily(res)
	return nil
}

func runNotes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	date, err := resolveDate(cfg, flagString(cmd, "date"))
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	notes, err := db.ListNotes(cfg.UserID, date)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Printf("No notes for %s.\n", date)
		return nil
	}

	fmt.Printf("Notes for %s:\n\n", date)
	for _, n := range notes {
		fmt.Printf("  %s  %s  %s\n", n.ID, n.InputTimestamp.Local().Format("15:04"), n.Text)
	}
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	note, err := db.DeleteNote(args[0])
	if err != nil {
		return err
	}

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}

	res, err := a.AnalyzeDaily(context.Background(), note.UserID, note.BusinessDate, true)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted note %s.\n\n", note.ID)
	printDaily(res)
	return nil
}

func runGaps(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	date, err := resolveDate(cfg, flagString(cmd, "date"))
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}

	res, err := a.AnalyzeDaily(context.Background(), cfg.UserID, date, false)
	if err != nil {
		return err
	}

	gapCfg, err := gapConfig(cfg)
	if err != nil {
		return err
	}
	found, err := gaps.DetectFromAnalysis(res, cfg.Timezone, gapCfg, time.Now())
	if err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Printf("No gaps on %s — the observation window is covered.\n", date)
		return nil
	}

	total := 0
	fmt.Printf("Gaps on %s:\n\n", date)
	for _, g := range found {
		fmt.Printf("  %s–%s  %d min\n",
			g.StartLocal.Format("15:04"), g.EndLocal.Format("15:04"), g.DurationMinutes)
		total += g.DurationMinutes
	}
	fmt.Printf("\nTotal unaccounted: %dh %dmin\n", total/60, total%60)
	return nil
}

func runFill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	date, err := resolveDate(cfg, "")
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}

	res, err := a.AnalyzeDaily(context.Background(), cfg.UserID, date, false)
	if err != nil {
		return err
	}

	gapCfg, err := gapConfig(cfg)
	if err != nil {
		return err
	}
	found, err := gaps.DetectFromAnalysis(res, cfg.Timezone, gapCfg, time.Now())
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("No gaps to fill.")
		return nil
	}

	largest := found[0]
	for _, g := range found[1:] {
		if g.DurationMinutes > largest.DurationMinutes {
			largest = g
		}
	}

	app := tui.NewApp(a, cfg.UserID, largest)
	p := tea.NewProgram(app)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	result := app.GetResult()
	if result == nil || result.Skipped {
		fmt.Println("Gap left open.")
		return nil
	}
	if result.Daily != nil {
		printDaily(*result.Daily)
	}
	return nil
}

func runWatchStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}
	gapCfg, err := gapConfig(cfg)
	if err != nil {
		return err
	}

	w := watch.New(a, cfg.UserID, cfg.Timezone, gapCfg,
		time.Duration(cfg.Watch.IntervalMinutes)*time.Minute,
		cfg.Watch.Notifications, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("Watching for gaps every %d min (window %s–%s).\n",
		cfg.Watch.IntervalMinutes, cfg.Day.ObservationStart, cfg.Day.ObservationEnd)
	return w.Run(ctx)
}

func runWatchStop(cmd *cobra.Command, args []string) error {
	pid, err := watch.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to daylog watcher (PID %d)\n", pid)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Calendar.Source == "" {
		return fmt.Errorf("no calendar source configured — set calendar.source or DAYLOG_CALENDAR_SOURCE")
	}
	logger := newLogger()

	date, err := resolveDate(cfg, flagString(cmd, "date"))
	if err != nil {
		return err
	}
	loc, err := busday.Location(cfg.Timezone)
	if err != nil {
		return err
	}
	dayStart, err := busday.DayStart(date, loc, cfg.Day.StartHour)
	if err != nil {
		return err
	}

	ctx := context.Background()
	events, err := calendar.Fetch(ctx, cfg.Calendar.Source, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return err
	}

	entries, err := calendar.Entries(events, date, cfg.Timezone, cfg.Day.StartHour)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No calendar events on %s.\n", date)
		return nil
	}

	fmt.Printf("Calendar events on %s:\n\n", date)
	for _, e := range entries {
		fmt.Printf("  %s–%s  %d min  %s\n",
			e.Start.In(loc).Format("15:04"), e.End.In(loc).Format("15:04"),
			e.Minutes, e.SubCategory)
	}

	save, _ := cmd.Flags().GetBool("save")
	if !save {
		fmt.Println("\nRe-run with --save to record these as notes.")
		return nil
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	a, err := buildAnalyzer(cfg, db, logger)
	if err != nil {
		return err
	}

	var res timeline.DailyResult
	for _, e := range entries {
		start, end := e.Start.In(loc), e.End.In(loc)
		text := fmt.Sprintf("%s-%s %s", start.Format("15:04"), end.Format("15:04"), e.SubCategory)
		res, err = a.IngestNote(ctx, cfg.UserID, text, end)
		if err != nil {
			return fmt.Errorf("recording event %q: %w", e.SubCategory, err)
		}
	}

	fmt.Println()
	printDaily(res)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("rendering default config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}

func printDaily(res timeline.DailyResult) {
	if len(res.Timeline) == 0 {
		fmt.Printf("No timeline for %s.\n", res.BusinessDate)
		return
	}

	fmt.Printf("Timeline for %s:\n\n", res.BusinessDate)
	for _, e := range res.Timeline {
		fmt.Printf("  %s–%s  %4d min  %-10s %s  (%.2f %s)\n",
			e.Start.Local().Format("15:04"),
			e.End.Local().Format("15:04"),
			e.Minutes,
			e.Category,
			e.SubCategory,
			e.Confidence,
			e.Method,
		)
	}

	fmt.Printf("\nTotal: %dh %dmin • confidence %.2f\n",
		res.TotalMinutes/60, res.TotalMinutes%60, res.Confidence)

	if len(res.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range res.Warnings {
			fmt.Printf("  • %s\n", w)
		}
	}
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
