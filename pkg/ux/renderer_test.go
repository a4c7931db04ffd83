// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/keyrescue/pkg/search"
)

func TestRenderer_FoundWithReveal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.Result(&search.Result{
		Password: "password123!",
		Attempts: 17,
		Elapsed:  2 * time.Second,
		Outcome:  search.OutcomeFound,
	}, true)

	out := buf.String()
	if !strings.Contains(out, "Password recovered") {
		t.Errorf("missing success line: %s", out)
	}
	if !strings.Contains(out, "password123!") {
		t.Errorf("revealed password missing: %s", out)
	}
	if !strings.Contains(out, "attempts: 17") {
		t.Errorf("missing attempts line: %s", out)
	}
}

func TestRenderer_FoundWithheld(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.Result(&search.Result{
		Password: "password123!",
		Attempts: 3,
		Elapsed:  time.Second,
		Outcome:  search.OutcomeFound,
	}, false)

	out := buf.String()
	if strings.Contains(out, "password123!") {
		t.Errorf("password leaked without --show-password: %s", out)
	}
	if !strings.Contains(out, "withheld") {
		t.Errorf("missing withheld notice: %s", out)
	}
}

func TestRenderer_OtherOutcomes(t *testing.T) {
	tests := []struct {
		outcome search.Outcome
		want    string
	}{
		{search.OutcomeExhausted, "exhausted"},
		{search.OutcomeInterrupted, "interrupted"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			NewRenderer(&buf).Result(&search.Result{Outcome: tt.outcome, Elapsed: time.Second}, false)
			if !strings.Contains(strings.ToLower(buf.String()), tt.want) {
				t.Errorf("output %q missing %q", buf.String(), tt.want)
			}
		})
	}
}

func TestRenderer_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).Info("plain %d", 7)
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("ANSI escapes written to a non-terminal: %q", buf.String())
	}
	if strings.TrimSpace(buf.String()) != "plain 7" {
		t.Errorf("Info output = %q", buf.String())
	}
}
