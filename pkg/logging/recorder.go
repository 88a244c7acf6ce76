package logging

import (
	"fmt"

	"github.com/arthur-debert/rigup/pkg/types"
)

// EntryKind labels the channel a Recorder entry arrived on
type EntryKind string

const (
	EntryLog    EntryKind = "log"
	EntryLocal  EntryKind = "local"
	EntryStdout EntryKind = "stdout"
	EntryStderr EntryKind = "stderr"
	EntryMock   EntryKind = "mock"
)

// Entry is a single recorded log event
type Entry struct {
	Kind EntryKind
	Task string
	Text string
}

// Recorder is an in-memory types.LogSink for tests and previews. Clones
// share the entry list so a forked context's traffic stays visible to the
// caller that owns the recorder.
type Recorder struct {
	entries *[]Entry
	task    string
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	entries := make([]Entry, 0)
	return &Recorder{entries: &entries}
}

func (r *Recorder) record(kind EntryKind, text string) {
	*r.entries = append(*r.entries, Entry{Kind: kind, Task: r.task, Text: text})
}

// Log records a general message
func (r *Recorder) Log(msg string) { r.record(EntryLog, msg) }

// Local records a controller-side command
func (r *Recorder) Local(cmd string) { r.record(EntryLocal, cmd) }

// Stdout records captured standard output
func (r *Recorder) Stdout(text string) { r.record(EntryStdout, text) }

// Stderr records captured standard error
func (r *Recorder) Stderr(text string) { r.record(EntryStderr, text) }

// MockExecute records a suppressed dry-run effect
func (r *Recorder) MockExecute(description string) { r.record(EntryMock, description) }

// SetTask names the running action and returns the previous name
func (r *Recorder) SetTask(name string) string {
	prev := r.task
	r.task = name
	return prev
}

// CloneForNode derives a sink sharing this recorder's entry list
func (r *Recorder) CloneForNode(n types.Node) types.LogSink {
	return &Recorder{entries: r.entries, task: r.task}
}

// Entries returns everything recorded so far, across clones
func (r *Recorder) Entries() []Entry {
	return *r.entries
}

// Messages returns the text of entries of one kind, in order
func (r *Recorder) Messages(kind EntryKind) []string {
	var out []string
	for _, e := range *r.entries {
		if e.Kind == kind {
			out = append(out, e.Text)
		}
	}
	return out
}

// Task returns the current diagnostic task name
func (r *Recorder) Task() string { return r.task }

// String dumps the recorded entries, one per line
func (r *Recorder) String() string {
	out := ""
	for _, e := range *r.entries {
		out += fmt.Sprintf("[%s] %s\n", e.Kind, e.Text)
	}
	return out
}
