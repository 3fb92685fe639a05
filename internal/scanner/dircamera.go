package scanner

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // frame formats
	_ "image/jpeg" // frame formats
	_ "image/png"  // frame formats
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

var frameExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// DirCamera treats a directory as a camera: the most recently written image file is the current frame.
// A capture tool (e.g. ffmpeg writing frame.jpg) keeps replacing it.
type DirCamera struct {
	Dir    string
	Logger *zap.Logger
}

// Open checks that the directory is readable. A missing or unreadable directory is a permission error.
func (c DirCamera) Open(_ context.Context, cons Constraints) (Stream, error) {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return nil, &models.PermissionError{Err: err}
	}
	if !info.IsDir() {
		return nil, &models.PermissionError{Err: fmt.Errorf("%s is not a directory", c.Dir)}
	}
	if _, err := os.ReadDir(c.Dir); err != nil {
		return nil, &models.PermissionError{Err: err}
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("frame directory opened",
		zap.String("dir", c.Dir),
		zap.String("facing_mode", cons.FacingMode),
		zap.Int("width", cons.Width),
		zap.Int("height", cons.Height),
	)
	return &dirStream{dir: c.Dir, logger: logger}, nil
}

type dirStream struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	last    string
	lastMod time.Time
}

// Frame returns the newest image file if it changed since the previous call.
func (s *dirStream) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, false
	}
	var name string
	var mod time.Time
	for _, e := range entries {
		if e.IsDir() || !frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if name == "" || info.ModTime().After(mod) {
			name, mod = e.Name(), info.ModTime()
		}
	}
	if name == "" || (name == s.last && mod.Equal(s.lastMod)) {
		return nil, false
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, false
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		// frame may be half written; retry on the next tick
		s.logger.Debug("skip unreadable frame", zap.String("file", name), zap.Error(err))
		return nil, false
	}
	s.last, s.lastMod = name, mod
	return img, true
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
