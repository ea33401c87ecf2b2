package main

import (
	"fmt"
	"io"
	"time"
)

// Progress reports batch command steps (compile, generate) with the
// elapsed time, so long loads show where the time went.
type Progress struct {
	w     io.Writer
	start time.Time
	quiet bool
}

// NewProgress creates a progress reporter writing to w.
func NewProgress(w io.Writer, quiet bool) *Progress {
	return &Progress{w: w, start: time.Now(), quiet: quiet}
}

// Log prints a progress message with elapsed time prefix.
func (p *Progress) Log(format string, args ...any) {
	if p.quiet {
		return
	}
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	fmt.Fprintf(p.w, "[%02d:%02d] %s\n", mins, secs, fmt.Sprintf(format, args...))
}
