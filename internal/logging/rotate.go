package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rotationDayLayout is the suffix format of rotated log files.
const rotationDayLayout = "2006_01_02"

// DailyRotatingFile is an io.WriteCloser that starts a new file at midnight.
// The active file keeps its name; the previous day's file is renamed to
// <name>.<YYYY_MM_DD>.log.
type DailyRotatingFile struct {
	mu   sync.Mutex
	path string
	file *os.File
	day  string
	now  func() time.Time
}

// OpenDailyRotatingFile opens (or creates) path for appending.
func OpenDailyRotatingFile(path string) (*DailyRotatingFile, error) {
	return openDailyRotatingFile(path, time.Now)
}

func openDailyRotatingFile(path string, now func() time.Time) (*DailyRotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f := &DailyRotatingFile{path: path, now: now}

	// An existing file from an earlier day gets rotated on the first write.
	f.day = now().Format(rotationDayLayout)
	if info, err := os.Stat(path); err == nil {
		f.day = info.ModTime().Format(rotationDayLayout)
	}

	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *DailyRotatingFile) open() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	f.file = file
	return nil
}

// Write implements io.Writer.
func (f *DailyRotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, os.ErrClosed
	}

	if today := f.now().Format(rotationDayLayout); today != f.day {
		if err := f.rotate(today); err != nil {
			return 0, err
		}
	}

	return f.file.Write(p)
}

// rotate moves the current file aside and opens a fresh one. When the rename
// fails the current file is reopened and rotation is retried on the next write.
func (f *DailyRotatingFile) rotate(today string) error {
	closeErr := f.file.Close()
	f.file = nil

	if err := os.Rename(f.path, RotatedName(f.path, f.day)); err != nil {
		if openErr := f.open(); openErr != nil {
			return errors.Join(fmt.Errorf("rotating log file: %w", err), openErr)
		}
		return fmt.Errorf("rotating log file: %w", err)
	}

	f.day = today
	if err := f.open(); err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("closing log file: %w", closeErr)
	}
	return nil
}

// Close closes the active file.
func (f *DailyRotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// RotatedName returns the name a log file gets when it is rotated out on day.
func RotatedName(path, day string) string {
	return path + "." + day + ".log"
}
