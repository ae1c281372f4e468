package logging

import (
	"fmt"
	"os"
	"sync"
)

// RotatingWriter writes to a file and rotates it when it reaches MaxSize
// bytes, keeping MaxBackups numbered backups.
type RotatingWriter struct {
	Filename   string
	MaxSize    int64
	MaxBackups int

	mu   sync.Mutex
	file *os.File
}

// NewRotatingWriter creates a writer; the file is opened lazily on first
// write.
func NewRotatingWriter(filename string, maxSize int64, maxBackups int) *RotatingWriter {
	return &RotatingWriter{
		Filename:   filename,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	for i := w.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", w.Filename, i), fmt.Sprintf("%s.%d", w.Filename, i+1))
	}
	if w.MaxBackups > 0 {
		os.Rename(w.Filename, w.Filename+".1")
	}

	return w.open()
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			// Fall back to stderr rather than losing the line.
			return os.Stderr.Write(p)
		}
	}

	if info, err := w.file.Stat(); err == nil && info.Size() > w.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	return w.file.Write(p)
}
