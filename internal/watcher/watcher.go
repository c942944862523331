package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/bass-society/secretary-backend/internal/transcript"
	"github.com/fsnotify/fsnotify"
)

// Watcher feeds transcript files dropped into a directory through the
// processing pipeline. File names carry the meeting metadata:
// <type>__<YYYY-MM-DD>__<name>.txt, e.g.
// general__2024-03-04__weekly-sync.txt.
type Watcher struct {
	dir        string
	integrator *transcript.Integrator
	log        *logger.Logger

	// settleDelay lets a file finish writing before it is read.
	settleDelay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(dir string, integrator *transcript.Integrator, baseLog *logger.Logger) *Watcher {
	return &Watcher{
		dir:         dir,
		integrator:  integrator,
		log:         baseLog.With("service", "Watcher"),
		settleDelay: 2 * time.Second,
		timers:      make(map[string]*time.Timer),
	}
}

// Run watches the directory until ctx is cancelled. Files already
// present at startup are processed first; the integrator's idempotency
// makes re-seeing a file harmless.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read watch dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.processFile(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	w.log.Info("Watching for transcripts", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.scheduleProcess(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", "error", err)
		}
	}
}

// scheduleProcess debounces per path: rapid write events reset the
// timer so the file is read once, after it settles.
func (w *Watcher) scheduleProcess(ctx context.Context, path string) {
	if !strings.HasSuffix(strings.ToLower(path), ".txt") {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.processFile(ctx, path)
	})
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if !strings.HasSuffix(strings.ToLower(path), ".txt") {
		return
	}

	meta, err := ParseFilename(filepath.Base(path))
	if err != nil {
		w.log.Warn("Skipping transcript with unparseable name", "file", path, "error", err)
		return
	}

	text, err := os.ReadFile(path)
	if err != nil {
		w.log.Error("Failed to read transcript", "file", path, "error", err)
		return
	}
	if strings.TrimSpace(string(text)) == "" {
		w.log.Warn("Skipping empty transcript", "file", path)
		return
	}

	report, err := w.integrator.Process(ctx, transcript.Request{
		Text:    string(text),
		Meeting: meta,
	})
	if err != nil {
		w.log.Error("Transcript processing failed", "file", path, "error", err)
		return
	}

	w.log.Info("Transcript file processed",
		"file", filepath.Base(path),
		"meeting_id", report.MeetingID,
		"already_processed", report.AlreadyProcessed,
		"tasks", report.TaskCount,
		"diagnostics", len(report.Diagnostics),
	)

	// Move the file out of the inbox so the directory reflects what is
	// still pending.
	processedDir := filepath.Join(w.dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		w.log.Warn("Could not create processed dir", "error", err)
		return
	}
	if err := os.Rename(path, filepath.Join(processedDir, filepath.Base(path))); err != nil {
		w.log.Warn("Could not move processed transcript", "file", path, "error", err)
	}
}

// ParseFilename extracts meeting metadata from a transcript file name
// of the form <type>__<YYYY-MM-DD>__<name>.txt. The name segment is
// optional; hyphens and underscores in it become spaces.
func ParseFilename(filename string) (transcript.MeetingMeta, error) {
	var meta transcript.MeetingMeta

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(base, "__")
	if len(parts) < 2 {
		return meta, fmt.Errorf("expected <type>__<date>[__<name>], got %q", filename)
	}

	date, err := time.Parse("2006-01-02", parts[1])
	if err != nil {
		return meta, fmt.Errorf("bad date in %q: %w", filename, err)
	}

	meta.Type = strings.ToLower(strings.TrimSpace(parts[0]))
	meta.Date = date
	if len(parts) > 2 && parts[2] != "" {
		name := strings.NewReplacer("-", " ", "_", " ").Replace(parts[2])
		meta.Name = strings.TrimSpace(name)
	}
	return meta, nil
}
