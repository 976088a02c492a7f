// Package display renders fetch progress, logs and command output.
package display

import "ff/pkg/common"

// Task represents a unit of work that can be monitored.
type Task interface {
	// Log adds a log message associated with this task. Only shown in verbose mode.
	Log(msg string)
	// SetStage updates the current stage of the task (e.g. "wget", "httplib")
	// and the target file being worked on.
	SetStage(name string, target string)
	// Progress updates the completion percentage (0-100) and status message.
	// A negative percent means the total size is unknown.
	Progress(percent int, message string)
	// Done marks the task as completed.
	// It is the responsibility of the caller who created the task via StartTask.
	Done()
}

// Display handles the visualization of tasks and logs.
type Display interface {
	// StartTask creates and returns a new tracked Task.
	StartTask(name string) Task
	// Log adds a direct log message to the display.
	Log(msg string)
	// Print adds a primary output message (e.g. table, info) to the display.
	Print(msg string)
	// Render prints structured command output.
	Render(out *common.Output)
	// SetVerbose enables or disables verbose logging.
	SetVerbose(v bool)
	// Verbose reports whether verbose logging is on.
	Verbose() bool
	// Close cleans up any resources and ensures final output is rendered.
	Close()
}
