package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

const partialPrefix = "partial:"

// Command runs an external speech-to-text program for each session. Every
// stdout line is a transcript; lines starting with "partial:" are interim.
// A non-zero exit that was not caused by Stop is a recognition error.
type Command struct {
	name   string
	args   []string
	locale string

	mu           sync.Mutex
	cur          *session
	onTranscript func(Transcript)
	onError      func(error)
	onEnd        func()
}

// session is one recognizer process. Once Stop detaches it, its output and
// exit are no longer reported.
type session struct {
	cancel context.CancelFunc
}

func NewCommand(command []string, locale string) (*Command, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errors.New("voice command is empty")
	}
	return &Command{name: command[0], args: command[1:], locale: locale}, nil
}

func (c *Command) OnTranscript(fn func(Transcript)) { c.mu.Lock(); c.onTranscript = fn; c.mu.Unlock() }
func (c *Command) OnError(fn func(error))           { c.mu.Lock(); c.onError = fn; c.mu.Unlock() }
func (c *Command) OnEnd(fn func())                  { c.mu.Lock(); c.onEnd = fn; c.mu.Unlock() }

// Start launches a new process unless one is already running. A session
// detached by Stop does not block the next one.
func (c *Command) Start(ctx context.Context) error {
	const op = "voice.Command.Start"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil {
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, c.name, c.args...)
	cmd.Env = append(os.Environ(), "VOICE_LOCALE="+c.locale)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%s: %w", op, err)
	}

	s := &session{cancel: cancel}
	c.cur = s

	go c.read(s, cmd, stdout)

	return nil
}

func (c *Command) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil {
		return nil
	}
	c.cur.cancel()
	c.cur = nil
	return nil
}

func (c *Command) read(s *session, cmd *exec.Cmd, stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		t := Transcript{Text: line, Final: true}
		if strings.HasPrefix(line, partialPrefix) {
			t = Transcript{Text: strings.TrimSpace(strings.TrimPrefix(line, partialPrefix))}
		}

		c.mu.Lock()
		fn := c.onTranscript
		attached := c.cur == s
		c.mu.Unlock()
		if fn != nil && attached {
			fn(t)
		}
	}

	waitErr := cmd.Wait()
	s.cancel()

	c.mu.Lock()
	if c.cur != s {
		c.mu.Unlock()
		return
	}
	c.cur = nil
	onError, onEnd := c.onError, c.onEnd
	c.mu.Unlock()

	if waitErr != nil && onError != nil {
		onError(&RecognitionError{Err: waitErr})
	}
	if onEnd != nil {
		onEnd()
	}
}
