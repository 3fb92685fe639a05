// Package scanner runs the camera capture and decode loop of the check-in kiosk.
package scanner

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/internal/qrcode"
)

// Status messages shown in the scan view.
const (
	MsgRequesting   = "Requesting camera access..."
	MsgReady        = "Camera ready. Position QR code in the frame."
	MsgCameraFailed = "Failed to access camera. Please check permissions."
	MsgStopped      = "Scanning stopped."
)

// StatusKind classifies a status message.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusError   StatusKind = "error"
	StatusSuccess StatusKind = "success"
)

// Constraints are camera preferences. Cameras apply them best effort.
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
}

// DefaultConstraints prefers the rear camera at 1280x720.
var DefaultConstraints = Constraints{FacingMode: "environment", Width: 1280, Height: 720}

// Camera opens a video stream.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera. Implementations must tolerate Frame racing with Close.
type Stream interface {
	// Frame returns the current frame, or false when no new frame is ready.
	Frame() (image.Image, bool)
	Close() error
}

// Decoder finds a QR symbol in a frame. It returns qrcode.ErrNoSymbol on a miss.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// UI receives scan status and control state.
type UI interface {
	ScanStatus(msg string, kind StatusKind)
	ScanControls(scanning bool)
}

// Options tune a Loop. Zero values pick the defaults.
type Options struct {
	Constraints Constraints
	FPS         int
	// Ticker overrides the frame scheduler. It returns the tick channel and a stop func.
	Ticker func() (<-chan time.Time, func())
}

// Loop polls a camera stream for QR codes. One goroutine per scan session;
// a session ends on Stop or after exactly one valid code has been handed off.
type Loop struct {
	camera      Camera
	decoder     Decoder
	ui          UI
	constraints Constraints
	ticker      func() (<-chan time.Time, func())
	logger      *zap.Logger

	mu       sync.Mutex
	gen      uint64
	scanning bool
	stream   Stream
	cancel   context.CancelFunc
	onDecode func(models.PersonData)
	wg       sync.WaitGroup
}

// New creates a stopped loop.
func New(camera Camera, decoder Decoder, ui UI, opts Options, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Constraints == (Constraints{}) {
		opts.Constraints = DefaultConstraints
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Ticker == nil {
		interval := time.Second / time.Duration(opts.FPS)
		opts.Ticker = func() (<-chan time.Time, func()) {
			t := time.NewTicker(interval)
			return t.C, t.Stop
		}
	}
	return &Loop{
		camera:      camera,
		decoder:     decoder,
		ui:          ui,
		constraints: opts.Constraints,
		ticker:      opts.Ticker,
		logger:      logger,
	}
}

// OnDecoded sets the hand-off target for a valid scanned person.
func (l *Loop) OnDecoded(fn func(models.PersonData)) {
	l.mu.Lock()
	l.onDecode = fn
	l.mu.Unlock()
}

// Scanning reports whether a session is active.
func (l *Loop) Scanning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scanning
}

// Start opens the camera and begins polling. Calling Start while scanning is a no-op.
// A camera failure is reported to the UI and returned as a *models.PermissionError.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scanning {
		return nil
	}

	l.ui.ScanStatus(MsgRequesting, StatusInfo)
	stream, err := l.camera.Open(ctx, l.constraints)
	if err != nil {
		l.logger.Warn("camera open failed", zap.Error(err))
		l.ui.ScanStatus(MsgCameraFailed, StatusError)
		var perr *models.PermissionError
		if errors.As(err, &perr) {
			return err
		}
		return &models.PermissionError{Err: err}
	}

	l.gen++
	l.scanning = true
	l.stream = stream
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.ui.ScanControls(true)
	l.ui.ScanStatus(MsgReady, StatusInfo)

	l.wg.Add(1)
	go l.run(loopCtx, l.gen, stream)
	return nil
}

// Stop ends the session, releasing the stream. Safe to call when already stopped.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Wait blocks until the polling goroutine of the last session has exited.
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) stopLocked() {
	if l.stream != nil {
		if err := l.stream.Close(); err != nil {
			l.logger.Warn("close camera stream", zap.Error(err))
		}
		l.stream = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.scanning {
		l.gen++
	}
	l.scanning = false
	l.ui.ScanControls(false)
	l.ui.ScanStatus(MsgStopped, StatusInfo)
}

func (l *Loop) run(ctx context.Context, gen uint64, stream Stream) {
	defer l.wg.Done()
	ticks, stop := l.ticker()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
		if !l.step(gen, stream) {
			return
		}
	}
}

// step runs one iteration and reports whether the session is still live.
func (l *Loop) step(gen uint64, stream Stream) bool {
	if !l.live(gen) {
		return false
	}
	frame, ok := stream.Frame()
	if !ok {
		return true
	}
	text, err := l.decoder.Decode(frame)
	if errors.Is(err, qrcode.ErrNoSymbol) {
		return true
	}
	if err != nil {
		l.logger.Debug("decode frame", zap.Error(err))
		return true
	}
	person, perr := qrcode.ParsePayload(text)

	l.mu.Lock()
	if !l.scanning || l.gen != gen {
		l.mu.Unlock()
		return false
	}
	if perr != nil {
		l.ui.ScanStatus(perr.Error(), StatusError)
		l.mu.Unlock()
		return true
	}
	l.stopLocked()
	handoff := l.onDecode
	l.mu.Unlock()

	l.logger.Info("code scanned", zap.String("name", person.FullName()))
	if handoff != nil {
		handoff(person)
	}
	return false
}

func (l *Loop) live(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scanning && l.gen == gen
}
