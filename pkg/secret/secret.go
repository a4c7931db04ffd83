// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package secret keeps a recovered password in mlocked memory between the
// moment the search returns it and the moment the caller displays or
// discards it.
//
// The buffer is locked against swapping, guarded against overflow, and
// explicitly wiped on Destroy. On systems without a usable mlock limit the
// package refuses to run unless KEYRESCUE_INSECURE_MEMORY=true, in which
// case it falls back to ordinary heap memory with a logged warning.
package secret

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// MinMlockLimitKB is the minimum mlock limit needed for secure holders.
const MinMlockLimitKB = 64

// insecureEnv is the opt-in for running without mlocked memory.
const insecureEnv = "KEYRESCUE_INSECURE_MEMORY"

var (
	initOnce        sync.Once
	mlockSufficient bool
	mlockLimitKB    int64
)

// Holder owns one secret string for the remainder of the process, or until
// Destroy is called.
//
// Thread Safety: Safe for concurrent use.
type Holder struct {
	mu        sync.Mutex
	buffer    *memguard.LockedBuffer
	plain     []byte
	destroyed bool
}

// FromString moves s into a secure holder.
//
// Inputs:
//   - s: The secret. The caller should drop its own reference promptly;
//     the string itself cannot be wiped.
//
// Outputs:
//   - *Holder: Owns the secret until Destroy.
//   - error: Non-nil when mlock limits are insufficient and the insecure
//     fallback was not opted into.
func FromString(s string) (*Holder, error) {
	initSecureMemory()

	// memguard rejects zero-size buffers; nothing to protect anyway.
	if s == "" {
		return &Holder{plain: []byte{}}, nil
	}

	if !mlockSufficient {
		if os.Getenv(insecureEnv) != "true" {
			return nil, fmt.Errorf(
				"secret: mlock limit insufficient: have %d KB, need %d KB. "+
					"Raise RLIMIT_MEMLOCK or set %s=true",
				mlockLimitKB, MinMlockLimitKB, insecureEnv)
		}
		slog.Warn("SECURITY: holding secret in unlocked memory",
			"mlock_limit_kb", mlockLimitKB,
			"env_override", insecureEnv+"=true")
		return &Holder{plain: []byte(s)}, nil
	}

	buf := memguard.NewBufferFromBytes([]byte(s))
	if buf == nil {
		return nil, fmt.Errorf("secret: allocating locked buffer of %d bytes", len(s))
	}
	return &Holder{buffer: buf}, nil
}

// Reveal returns a copy of the secret. The copy is ordinary Go memory;
// callers should keep its lifetime short.
func (h *Holder) Reveal() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return "", fmt.Errorf("secret: holder already destroyed")
	}
	if h.buffer != nil {
		return h.buffer.String(), nil
	}
	return string(h.plain), nil
}

// Destroy wipes the secret. Idempotent.
func (h *Holder) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return
	}
	if h.buffer != nil {
		h.buffer.Destroy()
	}
	for i := range h.plain {
		h.plain[i] = 0
	}
	h.plain = nil
	h.destroyed = true
}

// PurgeAll wipes every memguard allocation. Call during shutdown after the
// secret has been handed to the user.
func PurgeAll() {
	memguard.Purge()
}

// initSecureMemory checks the mlock rlimit once per process and arms
// memguard's interrupt handler so secrets are wiped on SIGINT.
func initSecureMemory() {
	initOnce.Do(func() {
		memguard.CatchInterrupt()

		var rlimit unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
			slog.Warn("could not determine mlock limit", "error", err)
			mlockSufficient, mlockLimitKB = true, -1
			return
		}
		if rlimit.Cur == unix.RLIM_INFINITY {
			mlockSufficient, mlockLimitKB = true, -1
			return
		}
		mlockLimitKB = int64(rlimit.Cur / 1024)
		mlockSufficient = mlockLimitKB >= MinMlockLimitKB
	})
}
