package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// RoomEvent is one line in the event journal.
type RoomEvent struct {
	TS     int64  `json:"ts"`
	Event  string `json:"event"`
	Room   string `json:"room,omitempty"`
	ID     string `json:"id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Journal writes lifecycle events as hour-rotated, zstd-compressed JSONL
// files. A nil Journal is valid and drops everything, so callers never need
// to branch on whether journaling is enabled.
type Journal struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewJournal creates a journal rooted at baseDir.
func NewJournal(baseDir string) *Journal {
	return &Journal{baseDir: baseDir, prefix: "events"}
}

// Write appends one event. Errors close the current file and are otherwise
// swallowed; the journal is best-effort.
func (j *Journal) Write(ev RoomEvent) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if ev.TS == 0 {
		ev.TS = time.Now().Unix()
	}

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return
		}
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if _, err := j.w.Write(b); err != nil {
		j.closeLocked()
		return
	}
	if err := j.w.WriteByte('\n'); err != nil {
		j.closeLocked()
		return
	}
	j.w.Flush()
}

// Close flushes and closes the current file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 64*1024)
	j.curHour = hour
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		j.f.Close()
		j.f = nil
	}
	j.w = nil
	return err
}

func (j *Journal) pathForHour(hour string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", j.prefix, hour))
}
