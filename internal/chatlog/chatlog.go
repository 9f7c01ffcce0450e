package chatlog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const lineTimeLayout = "2006-01-02 15:04:05"

// Logger appends a plain-text transcript of delivered messages, one file per
// room. Transcripts are best effort: a write failure is logged and dropped,
// never surfaced to the chat path.
type Logger struct {
	dir   string
	mu    sync.Mutex
	files map[int]*os.File
}

// New constructs a Logger writing under dir.
func New(dir string) *Logger {
	return &Logger{dir: dir, files: make(map[int]*os.File)}
}

// Append writes one transcript line for the room.
func (l *Logger) Append(roomID int, username string, body string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.fileLocked(roomID)
	if err != nil {
		log.Printf("chatlog open room %d: %v", roomID, err)
		return
	}

	line := fmt.Sprintf("%s - %s: %s\n", time.Now().Format(lineTimeLayout), username, body)
	if _, err := f.WriteString(line); err != nil {
		log.Printf("chatlog write room %d: %v", roomID, err)
	}
}

func (l *Logger) fileLocked(roomID int) (*os.File, error) {
	if f, ok := l.files[roomID]; ok {
		return f, nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, fmt.Sprintf("chatroom_%d.log", roomID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.files[roomID] = f
	return f, nil
}

// Close releases all open transcript files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for roomID, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.files, roomID)
	}
	return firstErr
}
