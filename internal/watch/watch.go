// Package watch runs the background loop that periodically recomputes the
// day's timeline and nudges the user about unaccounted gaps.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mkarlsen/daylog/internal/analyzer"
	"github.com/mkarlsen/daylog/internal/busday"
	"github.com/mkarlsen/daylog/internal/config"
	"github.com/mkarlsen/daylog/internal/gaps"
)

type Watcher struct {
	analyzer *analyzer.Analyzer
	userID   string
	timezone string
	gapCfg   gaps.Config
	interval time.Duration
	notify   bool
	logger   *slog.Logger
	now      func() time.Time
}

func New(a *analyzer.Analyzer, userID, timezone string, gapCfg gaps.Config, interval time.Duration, notify bool, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		analyzer: a,
		userID:   userID,
		timezone: timezone,
		gapCfg:   gapCfg,
		interval: interval,
		notify:   notify,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, waking on clock-aligned ticks.
func (w *Watcher) Run(ctx context.Context) error {
	if err := WritePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer RemovePID()

	w.logger.Info("watch started", "interval", w.interval, "user", w.userID)

	for {
		nextTick := nextAlignedTick(w.now(), w.interval)

		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil
		case <-time.After(time.Until(nextTick)):
		}

		if !w.insideObservation(w.now()) {
			continue
		}
		w.tick(ctx)
	}
}

// tick recomputes the day and notifies about the largest open gap, if any.
func (w *Watcher) tick(ctx context.Context) {
	info, err := busday.InfoFor(w.now(), w.timezone, w.gapCfg.DayStartHour)
	if err != nil {
		w.logger.Error("resolving business date", "error", err)
		return
	}

	res, err := w.analyzer.AnalyzeDaily(ctx, w.userID, info.BusinessDate, false)
	if err != nil {
		w.logger.Error("daily analysis failed", "error", err)
		return
	}

	found, err := gaps.DetectFromAnalysis(res, w.timezone, w.gapCfg, w.now())
	if err != nil {
		w.logger.Error("gap detection failed", "error", err)
		return
	}
	if len(found) == 0 {
		w.logger.Debug("no gaps", "date", info.BusinessDate)
		return
	}

	largest := found[0]
	for _, g := range found[1:] {
		if g.DurationMinutes > largest.DurationMinutes {
			largest = g
		}
	}
	w.logger.Info("open gap detected",
		"date", info.BusinessDate,
		"gaps", len(found),
		"largest_minutes", largest.DurationMinutes,
	)

	if w.notify {
		msg := fmt.Sprintf("%d min unaccounted since %s. What were you doing?",
			largest.DurationMinutes, largest.StartLocal.Format("15:04"))
		if err := SendNotification("daylog", msg); err != nil {
			w.logger.Debug("notification failed", "error", err)
		}
	}
}

// insideObservation reports whether t falls on a weekday within the
// observation window; ticks outside it are skipped, not rescheduled.
func (w *Watcher) insideObservation(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	nowMins := t.Hour()*60 + t.Minute()
	startMins := w.gapCfg.StartHour*60 + w.gapCfg.StartMinute
	endMins := w.gapCfg.EndHour*60 + w.gapCfg.EndMinute
	return nowMins >= startMins && nowMins <= endMins
}

// nextAlignedTick returns the next wall-clock time aligned to the interval
// within the hour, so a 30m interval fires at :00 and :30.
func nextAlignedTick(now time.Time, interval time.Duration) time.Time {
	mins := int(interval.Minutes())
	if mins <= 0 {
		mins = 60
	}

	nextMinute := ((now.Minute() / mins) + 1) * mins

	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	return next.Add(time.Duration(nextMinute) * time.Minute)
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daylog.pid"), nil
}

func WritePID() error {
	path, err := pidPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func RemovePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running watcher found")
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
