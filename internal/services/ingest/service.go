// Package ingest imports speech request log exports into the database,
// either on demand or by watching an inbox directory.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

const (
	processedDir     = "processed"
	failedDir        = "failed"
	debounceInterval = 100 * time.Millisecond
)

// Store persists parsed rows.
type Store interface {
	InsertSpeechRequests(ctx context.Context, reqs []models.SpeechRequest) (int, error)
}

// Result summarizes one imported file.
type Result struct {
	File     string
	Parsed   int
	Inserted int
	Skipped  []RowError
}

// Duplicates returns how many parsed rows were already stored.
func (r Result) Duplicates() int {
	return r.Parsed - r.Inserted
}

// EventType defines the type of ingest event.
type EventType int

const (
	EventImported EventType = iota
	EventError
)

// Event is emitted after each inbox file is handled.
type Event struct {
	Type   EventType
	File   string
	Result *Result
	Error  error
}

// Service imports log files and optionally watches an inbox directory.
type Service struct {
	mu        sync.Mutex
	store     Store
	inbox     string
	watcher   *fsnotify.Watcher
	eventChan chan Event
	stopChan  chan struct{}
	timers    map[string]*time.Timer
	closed    bool
	wg        sync.WaitGroup
}

// New creates an ingest service. When inbox is non-empty the directory is
// created, files already in it are queued and new files are picked up as
// they appear.
func New(store Store, inbox string) (*Service, error) {
	s := &Service{
		store:     store,
		inbox:     inbox,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		timers:    make(map[string]*time.Timer),
	}
	if inbox == "" {
		return s, nil
	}

	for _, dir := range []string{inbox, filepath.Join(inbox, processedDir), filepath.Join(inbox, failedDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start inbox watcher: %w", err)
	}

	entries, err := os.ReadDir(inbox)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			s.schedule(filepath.Join(inbox, e.Name()))
		}
	}

	return s, nil
}

// Events returns the event channel for inbox imports.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Inbox returns the watched directory, or "" when watching is disabled.
func (s *Service) Inbox() string {
	return s.inbox
}

// ImportFile parses and stores a single export file.
func (s *Service) ImportFile(ctx context.Context, path string) (*Result, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close log file", "file", path, "error", err)
		}
	}()

	batch, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	inserted := 0
	if len(batch.Requests) > 0 {
		inserted, err = s.store.InsertSpeechRequests(ctx, batch.Requests)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", path, err)
		}
	}

	res := &Result{
		File:     filepath.Base(path),
		Parsed:   len(batch.Requests),
		Inserted: inserted,
		Skipped:  batch.Skipped,
	}
	logger.Info("imported speech log", "file", res.File, "parsed", res.Parsed,
		"inserted", res.Inserted, "skipped", len(res.Skipped))
	return res, nil
}

func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	if err := watcher.Add(s.inbox); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		s.watcher = nil
		return err
	}

	s.wg.Add(1)
	go s.watchLoop()
	return nil
}

func (s *Service) watchLoop() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Dir(event.Name) != filepath.Clean(s.inbox) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.schedule(event.Name)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// schedule debounces imports per file so a file is read once its writer
// has gone quiet.
func (s *Service) schedule(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if t, ok := s.timers[path]; ok {
		t.Stop()
	}
	s.timers[path] = time.AfterFunc(debounceInterval, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.timers, path)
		s.wg.Add(1)
		s.mu.Unlock()

		defer s.wg.Done()
		s.handleFile(path)
	})
}

func (s *Service) handleFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Already moved by an earlier event.
		return
	}

	if _, err := DetectFormat(path); err != nil {
		s.moveTo(path, failedDir)
		s.sendEvent(Event{Type: EventError, File: filepath.Base(path), Error: err})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := s.ImportFile(ctx, path)
	if err != nil {
		s.moveTo(path, failedDir)
		s.sendEvent(Event{Type: EventError, File: filepath.Base(path), Error: err})
		return
	}

	s.moveTo(path, processedDir)
	s.sendEvent(Event{Type: EventImported, File: res.File, Result: res})
}

func (s *Service) moveTo(path, sub string) {
	dest := filepath.Join(s.inbox, sub, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(s.inbox, sub, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	if err := os.Rename(path, dest); err != nil {
		logger.Error("failed to move inbox file", "file", path, "dest", dest, "error", err)
	}
}

func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event and try again
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the watcher and waits for in-flight imports.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.mu.Unlock()

	close(s.stopChan)

	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	return err
}
