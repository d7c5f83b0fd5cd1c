// Package capture turns spoken input into text. Callers own the handle
// returned by Start and stop it when they are done listening.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	maxLine   = 1 << 20
	waitDelay = 2 * time.Second
)

var (
	ErrUnsupported = errors.New("speech capture not supported")
	ErrBusy        = errors.New("speech capture already running")
	ErrNoSpeech    = errors.New("no speech recognized")
)

type Capturer interface {
	// Start begins one capture. Exactly one of onText or onError is called
	// from another goroutine when it ends, unless the handle is stopped
	// first.
	Start(onText func(string), onError func(error)) (Handle, error)
}

type Handle interface {
	Stop()
	Done() <-chan struct{}
}

// Unsupported is used when no recognizer is configured.
type Unsupported struct{}

func (Unsupported) Start(func(string), func(error)) (Handle, error) {
	return nil, ErrUnsupported
}

// CommandCapturer runs an external speech-to-text program and takes the
// first non-empty line it prints as the transcript.
type CommandCapturer struct {
	argv   []string
	logger *log.Logger

	mu     sync.Mutex
	active *commandHandle
}

func NewCommand(argv []string, logger *log.Logger) Capturer {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Unsupported{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CommandCapturer{argv: append([]string(nil), argv...), logger: logger}
}

type commandHandle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	stopped chan struct{}
}

func (h *commandHandle) Stop() {
	h.once.Do(func() {
		close(h.stopped)
		h.cancel()
	})
}

func (h *commandHandle) Done() <-chan struct{} { return h.done }

func (h *commandHandle) isStopped() bool {
	select {
	case <-h.stopped:
		return true
	default:
		return false
	}
}

func (c *CommandCapturer) Start(onText func(string), onError func(error)) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	// Children that inherit stdout must not keep Wait blocked after a stop.
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", c.argv[0], err)
	}
	c.logger.Debug("speech capture started", "command", cmd.Args)

	h := &commandHandle{cancel: cancel, done: make(chan struct{}), stopped: make(chan struct{})}
	c.active = h

	go func() {
		defer close(h.done)
		defer cancel()

		var text string
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" && text == "" {
				text = line
			}
		}
		scanErr := scanner.Err()
		if scanErr != nil {
			c.logger.Warn("speech capture output unreadable", "err", scanErr)
			// keep the pipe flowing so the recognizer can exit
			io.Copy(io.Discard, stdout)
		}
		waitErr := cmd.Wait()

		c.mu.Lock()
		c.active = nil
		c.mu.Unlock()

		if h.isStopped() {
			c.logger.Debug("speech capture stopped")
			return
		}
		switch {
		case text != "":
			if onText != nil {
				onText(text)
			}
		case scanErr != nil:
			if onError != nil {
				onError(fmt.Errorf("read transcript: %w", scanErr))
			}
		case waitErr != nil:
			c.logger.Warn("speech capture failed", "err", waitErr)
			if onError != nil {
				onError(fmt.Errorf("speech recognition error: %w", waitErr))
			}
		default:
			if onError != nil {
				onError(ErrNoSpeech)
			}
		}
	}()
	return h, nil
}
