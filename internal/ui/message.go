package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytcurate/internal/tasks"
)

// MsgKind enumerates the messages of the run monitor.
type MsgKind int

// Msg is the message union of the run monitor.
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgRunComplete
)

type runResult struct {
	summary *tasks.Summary
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(summary *tasks.Summary, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runResult{summary: summary, err: err}}
}
