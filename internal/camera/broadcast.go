package camera

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"
)

// Listener receives frames from a camera's continuous-capture loop.
// Implementations must be comparable (pointer receivers are), since the
// listener value itself is its registration identity.
type Listener interface {
	FrameReceived(img image.Image)
}

// listenerState tracks delivery progress for one registered listener.
type listenerState struct {
	delivered uint64 // sequence of the last frame pushed to the listener
	consumed  uint64 // sequence acknowledged through HasNewFrame
}

// Broadcaster runs continuous-capture mode for one camera: a background
// acquisition loop that fans each new frame out to every registered
// listener. One slow or failing listener never delays or stops delivery
// to the others, and the loop never blocks machine motion.
type Broadcaster struct {
	cam *ReferenceCamera
	log *slog.Logger

	// deliverMu serializes fan-out passes with listener removal, so that
	// no frame reaches a listener after its removal call returns.
	deliverMu sync.Mutex

	mu        sync.Mutex
	listeners map[Listener]*listenerState
	seq       uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewBroadcaster creates the continuous-capture manager for cam.
func NewBroadcaster(cam *ReferenceCamera, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		cam:       cam,
		log:       logger,
		listeners: make(map[Listener]*listenerState),
	}
}

// StartContinuousCapture registers a listener. The acquisition loop is
// started on the first registration; additional listeners share it, each
// receiving every frame independently.
func (b *Broadcaster) StartContinuousCapture(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[l]; ok {
		return
	}
	b.listeners[l] = &listenerState{}
	if b.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		b.done = make(chan struct{})
		go b.acquire(ctx, b.done)
	}
}

// StopContinuousCapture removes one listener. When it returns, the
// listener will receive no further frames. Removing the last listener
// stops the acquisition loop after any in-flight delivery finishes.
func (b *Broadcaster) StopContinuousCapture(l Listener) {
	// Wait out an in-flight fan-out pass first.
	b.deliverMu.Lock()

	b.mu.Lock()
	delete(b.listeners, l)
	var cancel context.CancelFunc
	var done chan struct{}
	if len(b.listeners) == 0 && b.cancel != nil {
		cancel = b.cancel
		done = b.done
		b.cancel = nil
		b.done = nil
	}
	b.mu.Unlock()
	b.deliverMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// HasNewFrame reports whether a frame has arrived for l since this method
// last returned true for it. Progress is tracked per listener, so
// independent consumers do not disturb each other.
func (b *Broadcaster) HasNewFrame(l Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.listeners[l]
	if !ok {
		return false
	}
	if st.delivered > st.consumed {
		st.consumed = st.delivered
		return true
	}
	return false
}

// ListenerCount returns the number of registered listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// acquire is the per-camera acquisition loop.
func (b *Broadcaster) acquire(ctx context.Context, done chan struct{}) {
	defer close(done)

	fps := b.cam.FPS()
	if fps <= 0 {
		fps = 10
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	b.log.Debug("continuous capture started", "camera", b.cam.Name(), "fps", fps)
	for {
		select {
		case <-ctx.Done():
			b.log.Debug("continuous capture stopped", "camera", b.cam.Name())
			return
		case <-ticker.C:
		}

		img, err := b.cam.CaptureTransformed(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			framesTotal.WithLabelValues(b.cam.Name(), "error").Inc()
			b.log.Warn("continuous capture frame failed", "camera", b.cam.Name(), "error", err)
			continue
		}
		framesTotal.WithLabelValues(b.cam.Name(), "captured").Inc()
		b.broadcast(img)
	}
}

// broadcast fans one frame out to a snapshot of the listener set, each
// delivery isolated so a misbehaving listener is logged and skipped.
func (b *Broadcaster) broadcast(img image.Image) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	b.seq++
	seq := b.seq
	snapshot := make([]Listener, 0, len(b.listeners))
	for l := range b.listeners {
		snapshot = append(snapshot, l)
	}
	b.mu.Unlock()

	for _, l := range snapshot {
		if b.deliver(l, img) {
			b.mu.Lock()
			if st, ok := b.listeners[l]; ok {
				st.delivered = seq
			}
			b.mu.Unlock()
			deliveriesTotal.WithLabelValues(b.cam.Name(), "ok").Inc()
		} else {
			deliveriesTotal.WithLabelValues(b.cam.Name(), "failed").Inc()
		}
	}
}

// deliver pushes one frame to one listener, containing panics.
func (b *Broadcaster) deliver(l Listener, img image.Image) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.log.Warn("listener failed, frame skipped",
				"camera", b.cam.Name(), "panic", r)
		}
	}()
	l.FrameReceived(img)
	return true
}
