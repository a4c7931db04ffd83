// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/keyrescue/pkg/search"
)

// Renderer writes human-facing output. Styling is applied only when the
// destination is a terminal.
type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer creates a renderer for w. When w is os.Stdout or os.Stderr,
// color is enabled only for real terminals.
func NewRenderer(w io.Writer) *Renderer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{w: w, color: color}
}

// Result renders a completed search summary. The password itself is
// printed only when reveal is true; otherwise a placeholder reminds the
// user to rerun with --show-password.
func (r *Renderer) Result(res *search.Result, reveal bool) {
	switch res.Outcome {
	case search.OutcomeFound:
		r.line(Styles.Success, "Password recovered")
		if reveal {
			r.line(Styles.Bold, "  password: %s", res.Password)
		} else {
			r.line(Styles.Muted, "  password withheld (use --show-password to print it)")
		}
	case search.OutcomeExhausted:
		r.line(Styles.Warning, "Candidate space exhausted, no match")
	case search.OutcomeInterrupted:
		r.line(Styles.Error, "Search interrupted")
	}

	r.line(Styles.Muted, "  attempts: %d   elapsed: %s   rate: %.1f/s",
		res.Attempts, res.Elapsed.Round(time.Millisecond), rate(res))
}

// Info prints a muted informational line.
func (r *Renderer) Info(format string, args ...any) {
	r.line(Styles.Muted, format, args...)
}

// Error prints an error line.
func (r *Renderer) Error(format string, args ...any) {
	r.line(Styles.Error, format, args...)
}

// line applies style when color is on.
func (r *Renderer) line(style interface{ Render(...string) string }, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if r.color {
		text = style.Render(text)
	}
	fmt.Fprintln(r.w, text)
}

// rate computes attempts per second, guarding the zero-duration case.
func rate(res *search.Result) float64 {
	secs := res.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(res.Attempts) / secs
}
