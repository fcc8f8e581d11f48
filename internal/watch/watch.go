// Package watch decides when the runner pipeline should execute again.
//
// Two sources feed the loop. A reader goroutine turns operator input lines
// into commands and hands each one over an unbuffered channel, so a command is
// only accepted when the loop is ready for it. An observer goroutine watches
// directories and posts change signals to a single-slot mailbox where a newer
// signal replaces an unread one, which coalesces bursts into one trigger.
//
// Next polls commands with a short timeout and checks the mailbox between
// polls. Exit always wins over a pending change.
package watch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mattjoyce/aocrunner/internal/log"
)

// DefaultPollInterval bounds how long a change waits before it is noticed.
const DefaultPollInterval = 20 * time.Millisecond

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("watch supervisor closed")

// EventKind tells the caller what Next observed.
type EventKind int

const (
	EventSetMode EventKind = iota + 1
	EventRerun
	EventChange
	EventError
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventSetMode:
		return "set_mode"
	case EventRerun:
		return "rerun"
	case EventChange:
		return "change"
	case EventError:
		return "error"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is the outcome of one Next call. Every kind except EventError and
// EventExit means the pipeline should execute once.
type Event struct {
	Kind EventKind
	Mode string // set for EventSetMode
	Err  error  // set for EventError
}

// Trigger reports whether the event should run the pipeline.
func (e Event) Trigger() bool {
	return e.Kind == EventSetMode || e.Kind == EventRerun || e.Kind == EventChange
}

// Config configures a Supervisor.
type Config struct {
	Dirs         []string          // watched recursively; missing ones are skipped
	PollInterval time.Duration     // DefaultPollInterval when zero
	Input        io.Reader         // operator commands; nil disables them
	Modes        map[string]string // accepted mode spellings, see ParseCommand
}

// Supervisor owns the reader and observer goroutines.
type Supervisor struct {
	poll     time.Duration
	commands chan Command
	changes  chan error
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts watching cfg.Dirs and reading cfg.Input.
func New(cfg Config) (*Supervisor, error) {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	s := &Supervisor{
		poll:     poll,
		commands: make(chan Command),
		changes:  make(chan error, 1),
		watcher:  watcher,
		logger:   log.WithComponent("watch"),
		done:     make(chan struct{}),
	}

	for _, dir := range cfg.Dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("watch directory does not exist, skipping", "dir", dir)
			continue
		}
		if err := s.addTree(dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	s.wg.Add(1)
	go s.observe()

	if cfg.Input != nil {
		// The reader may sit in a blocking read that Close cannot interrupt,
		// so it is not part of wg.
		go s.readCommands(cfg.Input, cfg.Modes, s.commands)
	} else {
		s.commands = nil
	}
	return s, nil
}

// Next blocks until something should happen: a command, a coalesced change,
// an observer error or exit. It returns an error only when ctx is done or the
// Supervisor is closed.
func (s *Supervisor) Next(ctx context.Context) (Event, error) {
	timer := time.NewTimer(s.poll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.done:
			return Event{}, ErrClosed
		case cmd, ok := <-s.commands:
			if !ok {
				s.inputClosed()
				continue
			}
			return commandEvent(cmd), nil
		case <-timer.C:
		}

		select {
		case sig := <-s.changes:
			// A command waiting alongside the change takes precedence; Exit
			// must never lose to a change.
			select {
			case cmd, ok := <-s.commands:
				if ok {
					return commandEvent(cmd), nil
				}
				s.inputClosed()
			default:
			}
			if sig != nil {
				s.logger.Warn("file watcher error", "error", sig)
				return Event{Kind: EventError, Err: sig}, nil
			}
			return Event{Kind: EventChange}, nil
		default:
		}
		timer.Reset(s.poll)
	}
}

// Close stops the observer and unblocks a reader waiting to hand over a
// command. It is safe to call more than once.
func (s *Supervisor) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Supervisor) inputClosed() {
	s.logger.Info("operator input closed; only file changes will trigger runs")
	s.commands = nil
}

func commandEvent(cmd Command) Event {
	switch cmd.Kind {
	case SetMode:
		return Event{Kind: EventSetMode, Mode: cmd.Mode}
	case Rerun:
		return Event{Kind: EventRerun}
	default:
		return Event{Kind: EventExit}
	}
}

func (s *Supervisor) readCommands(r io.Reader, modes map[string]string, out chan<- Command) {
	defer close(out)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, ok := ParseCommand(scanner.Text(), modes)
		if !ok {
			s.logger.Debug("ignoring operator input", "line", scanner.Text())
			continue
		}
		select {
		case out <- cmd:
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("reading operator input", "error", err)
	}
}

func (s *Supervisor) observe() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.addTree(ev.Name); err != nil {
						s.offer(err)
						continue
					}
				}
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			s.offer(nil)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.offer(err)
		}
	}
}

// offer posts sig to the mailbox, replacing an unread signal.
func (s *Supervisor) offer(sig error) {
	for {
		select {
		case s.changes <- sig:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

// addTree watches root and every directory below it; fsnotify itself is not
// recursive.
func (s *Supervisor) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
