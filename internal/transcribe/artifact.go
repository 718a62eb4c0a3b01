package transcribe

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"
)

// Artifact is a temporary audio file that must be removed after use
type Artifact struct {
	Path string

	once sync.Once
	err  error
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// NewArtifact writes data to a new file in dir named <clientID>_<unix ms>_*<ext>
func NewArtifact(dir, clientID, ext string, data []byte) (*Artifact, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	prefix := unsafeNameChars.ReplaceAllString(clientID, "_")
	pattern := fmt.Sprintf("%s_%d_*%s", prefix, time.Now().UnixMilli(), ext)

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	a := &Artifact{Path: f.Name()}

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = a.Release()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	return a, nil
}

// Release removes the file. It is safe to call more than once.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			a.err = err
		}
	})
	return a.err
}

// WithArtifact writes data to a temporary file, runs fn with its path and
// removes the file on every exit path, panics included
func WithArtifact(dir, clientID, ext string, data []byte, fn func(path string) error) (err error) {
	a, err := NewArtifact(dir, clientID, ext, data)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := a.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("remove temp file: %w", rerr)
		}
	}()
	return fn(a.Path)
}
