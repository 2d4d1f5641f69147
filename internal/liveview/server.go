// Package liveview serves a camera's continuous-capture stream to
// websocket clients and exposes process metrics. Each websocket client is
// one broadcaster listener; a slow or dead client is dropped without
// affecting the others.
package liveview

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/placerworks/pnpvision/internal/camera"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The live view binds to the machine operator's host.
		return true
	},
}

// Server streams live camera frames over websockets.
type Server struct {
	cam         *camera.ReferenceCamera
	broadcaster *camera.Broadcaster
	log         *slog.Logger
	httpServer  *http.Server
	jpegQuality int
}

// New creates a live-view server for cam listening on addr.
func New(addr string, cam *camera.ReferenceCamera, bc *camera.Broadcaster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cam:         cam,
		broadcaster: bc,
		log:         logger,
		jpegQuality: 80,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stream", s.streamHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("live view listening", "addr", s.httpServer.Addr, "camera", s.cam.Name())
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"camera": s.cam.Name(),
	})
}

// streamHandler upgrades to a websocket and relays frames until the
// client goes away.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	client := newWSListener()
	s.broadcaster.StartContinuousCapture(client)
	defer s.broadcaster.StopContinuousCapture(client)
	wsClients.Inc()
	defer wsClients.Dec()
	s.log.Info("stream client connected", "remote", r.RemoteAddr, "camera", s.cam.Name())

	// Reader goroutine: only there to notice the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	buf := &bytes.Buffer{}
	for {
		select {
		case <-done:
			return
		case frame, ok := <-client.frames:
			if !ok {
				return
			}
			buf.Reset()
			if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: s.jpegQuality}); err != nil {
				s.log.Warn("frame encode failed", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
				s.log.Info("stream client gone", "remote", r.RemoteAddr)
				return
			}
			wsFramesSent.Inc()
		}
	}
}

// wsListener adapts a websocket client to the broadcaster's Listener
// contract. Frames are buffered shallowly and dropped when the client
// cannot keep up, so delivery to other listeners is never delayed.
type wsListener struct {
	frames chan image.Image
}

func newWSListener() *wsListener {
	return &wsListener{frames: make(chan image.Image, 2)}
}

// FrameReceived queues a frame for the writer, dropping it if the client
// is behind.
func (l *wsListener) FrameReceived(img image.Image) {
	select {
	case l.frames <- img:
	default:
		wsFramesDropped.Inc()
	}
}
