// Package ui renders pipeline runs in the terminal.
//
// [Model] is a bubbletea program for interactive runs. It starts the pipeline in a goroutine,
// listens to its [tasks.ProgressUpdate] channel and draws the current phase with a
// charmbracelet/bubbles progress bar. Once the run returns it switches to a result view listing
// each updated playlist; q quits.
//
// [RenderSummary] prints the same result without a program, for unattended runs.
package ui
