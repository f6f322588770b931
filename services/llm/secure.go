// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// minMlockKB is the mlock allowance needed to pin credential buffers.
// One locked page per key plus memguard's canary pages.
const minMlockKB = 64

var (
	secureInitOnce sync.Once
	mlockUsable    bool
	mlockLimitKB   int64
)

// initSecureMemory prepares memguard once per process and records
// whether the mlock limit permits locked credential storage.
func initSecureMemory() {
	secureInitOnce.Do(func() {
		memguard.CatchInterrupt()
		mlockUsable, mlockLimitKB = checkMlockLimit()
		if mlockUsable {
			slog.Debug("Secure credential storage enabled", "mlock_limit_kb", mlockLimitKB)
		} else {
			slog.Warn("mlock limit too low for locked credential storage, keys held in regular memory",
				"mlock_limit_kb", mlockLimitKB,
				"required_kb", minMlockKB,
			)
		}
	})
}

// checkMlockLimit queries RLIMIT_MEMLOCK. Returns whether the limit
// covers minMlockKB and the limit itself in KB (-1 when unlimited).
func checkMlockLimit() (bool, int64) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		slog.Warn("Could not determine mlock limit", "error", err)
		return true, -1
	}

	if rlimit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}

	limitKB := int64(rlimit.Cur / 1024)
	return limitKB >= minMlockKB, limitKB
}

// secretValue holds a credential for the life of a client. When the
// process may mlock, the bytes live in a memguard LockedBuffer (pinned,
// canaried, wiped on destroy); otherwise they fall back to a plain
// string so low-privilege environments keep working.
type secretValue struct {
	locked *memguard.LockedBuffer
	plain  string
}

// newSecretValue seals value for later use. The caller should drop its
// own copy of the string as soon as possible.
func newSecretValue(value string) *secretValue {
	initSecureMemory()
	// memguard rejects zero-length buffers.
	if !mlockUsable || value == "" {
		return &secretValue{plain: value}
	}
	return &secretValue{locked: memguard.NewBufferFromBytes([]byte(value))}
}

// reveal returns the credential text. The returned string must not be
// retained beyond the request that needs it.
func (s *secretValue) reveal() string {
	if s.locked != nil {
		return s.locked.String()
	}
	return s.plain
}

// destroy wipes the locked buffer. Safe to call more than once.
func (s *secretValue) destroy() {
	if s.locked != nil {
		s.locked.Destroy()
		s.locked = nil
	}
	s.plain = ""
}
