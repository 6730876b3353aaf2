// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"io"
	"time"
)

/* -------------------- PROGRESS HOOK -------------------- */

// ProgressHook receives transfer progress. totalBytes is -1 for streams of
// unknown length.
type ProgressHook struct {
	OnStart    func(key string, totalBytes int64)                     // once, before the first byte
	OnProgress func(key string, written, totalBytes int64)            // throttled
	OnDone     func(key string, totalBytes int64, took time.Duration) // after the last byte
}

const progressInterval = 250 * time.Millisecond

type progressWriter struct {
	key        string
	total      int64
	written    int64
	lastEmit   time.Time
	interval   time.Duration
	onProgress func(key string, written, total int64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)
	now := time.Now()
	if pw.onProgress != nil && (pw.written == pw.total || now.Sub(pw.lastEmit) >= pw.interval) {
		pw.onProgress(pw.key, pw.written, pw.total)
		pw.lastEmit = now
	}
	return n, nil
}

// tracked wraps r so every byte read is counted and reported to hook.
// The returned finish func must be called once the copy is over.
func tracked(r io.Reader, key string, total int64, hook *ProgressHook) (io.Reader, *progressWriter, func()) {
	pw := &progressWriter{key: key, total: total, interval: progressInterval}
	if hook != nil {
		pw.onProgress = hook.OnProgress
	}
	if hook != nil && hook.OnStart != nil {
		hook.OnStart(key, total)
	}
	start := time.Now()
	finish := func() {
		if hook != nil && hook.OnDone != nil {
			done := total
			if done < 0 {
				done = pw.written
			}
			hook.OnDone(key, done, time.Since(start))
		}
	}
	return io.TeeReader(r, pw), pw, finish
}
