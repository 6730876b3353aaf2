// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cfupload/cfupload/sdk/blobstore"
)

/* ------------ tiny UI helpers for single-line progress ------------ */

type globalProgress struct {
	mu         sync.Mutex
	out        io.Writer
	key        string
	totalKnown bool
	totalBytes int64
	doneBytes  int64
	spinIdx    int
	lastTick   time.Time
}

var spinner = []rune{'|', '/', '-', '\\'}

// NewProgressHook renders a single progress line per object on out.
func NewProgressHook(out io.Writer) *blobstore.ProgressHook {
	gp := &globalProgress{out: out}
	return &blobstore.ProgressHook{
		OnStart: func(key string, total int64) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			gp.key = key
			gp.totalKnown = total >= 0
			gp.totalBytes = total
			gp.doneBytes = 0
			gp.lastTick = time.Time{}
			gp.render(true)
		},
		OnProgress: func(_ string, written, _ int64) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			gp.doneBytes = written
			gp.render(false)
		},
		OnDone: func(_ string, total int64, took time.Duration) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			gp.doneBytes = total
			gp.done(took)
		},
	}
}

func (gp *globalProgress) render(force bool) {
	// throttling: update ~10 times each seconds to avoid “spamming”
	if !force && time.Since(gp.lastTick) < 100*time.Millisecond {
		return
	}
	gp.lastTick = time.Now()

	if gp.totalKnown && gp.totalBytes > 0 {
		if gp.doneBytes > gp.totalBytes {
			gp.doneBytes = gp.totalBytes
		}
		pct := float64(gp.doneBytes) / float64(gp.totalBytes) * 100
		fmt.Fprintf(gp.out, "\r%s: %6.2f%% (%s / %s)   ",
			gp.key, pct, HumanSize(gp.doneBytes), HumanSize(gp.totalBytes))
	} else {
		ch := spinner[gp.spinIdx%len(spinner)]
		gp.spinIdx++
		fmt.Fprintf(gp.out, "\r%s: [%c] %s uploaded   ", gp.key, ch, HumanSize(gp.doneBytes))
	}
}

func (gp *globalProgress) done(took time.Duration) {
	gp.totalKnown = true
	if gp.totalBytes <= 0 {
		gp.totalBytes = gp.doneBytes
	}
	gp.render(true)
	fmt.Fprintf(gp.out, "in %s\n", took.Round(time.Millisecond))
}
