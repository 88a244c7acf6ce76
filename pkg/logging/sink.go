package logging

import (
	"github.com/rs/zerolog"

	"github.com/arthur-debert/rigup/pkg/types"
)

// Sink is the zerolog-backed types.LogSink used on real node runs. Each
// sink carries the diagnostic task name of the action currently executing;
// the trigger resolver swaps and restores it around nested calls.
type Sink struct {
	logger zerolog.Logger
	task   string
}

// NewSink creates a sink writing through the named component logger
func NewSink(component string) *Sink {
	return &Sink{logger: GetLogger(component)}
}

// NewSinkWithLogger creates a sink over an explicit logger, useful when a
// caller already carries contextual fields
func NewSinkWithLogger(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) event() *zerolog.Event {
	e := s.logger.Info()
	if s.task != "" {
		e = e.Str("task", s.task)
	}
	return e
}

// Log records a general message
func (s *Sink) Log(msg string) {
	s.event().Msg(msg)
}

// Local records a command executed on the controller machine
func (s *Sink) Local(cmd string) {
	s.event().Str("where", "local").Msg(cmd)
}

// Stdout records captured standard output
func (s *Sink) Stdout(text string) {
	if text == "" {
		return
	}
	s.event().Str("stream", "stdout").Msg(text)
}

// Stderr records captured standard error
func (s *Sink) Stderr(text string) {
	if text == "" {
		return
	}
	s.event().Str("stream", "stderr").Msg(text)
}

// MockExecute records a suppressed dry-run effect
func (s *Sink) MockExecute(description string) {
	s.event().Str("mode", "dry-run").Msg(description)
}

// SetTask names the running action and returns the previous name
func (s *Sink) SetTask(name string) string {
	prev := s.task
	s.task = name
	return prev
}

// CloneForNode derives an independent sink for a forked node. The clone
// starts with the same task name; subsequent SetTask calls on either sink
// do not affect the other.
func (s *Sink) CloneForNode(n types.Node) types.LogSink {
	logger := s.logger
	if n != nil {
		logger = logger.With().Str("user", n.User()).Logger()
	}
	return &Sink{logger: logger, task: s.task}
}
