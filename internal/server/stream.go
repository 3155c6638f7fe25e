package server

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/chainfit/internal/capture"
	"github.com/ayusman/chainfit/internal/pipeline"
)

// StreamQuality is the JPEG quality of MJPEG frames.
const StreamQuality = 80

// StreamHandler serves rendered frames as MJPEG.
type StreamHandler struct {
	hub *pipeline.Hub
	log *logrus.Logger
}

// NewStreamHandler creates a new StreamHandler reading from hub.
func NewStreamHandler(hub *pipeline.Hub, log *logrus.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, log: log}
}

// ServeHTTP streams MJPEG frames to connected clients until the client goes
// away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frames, cancel := h.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush(w)

	// Start with the current frame so a paused pipeline still shows
	// something.
	if f := h.hub.Latest(); f != nil {
		if err := h.writeFrame(w, f); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := h.writeFrame(w, f); err != nil {
				h.log.WithError(err).Debug("Stream client gone")
				return
			}
		}
	}
}

func (h *StreamHandler) writeFrame(w http.ResponseWriter, f *pipeline.Frame) error {
	buf, err := capture.EncodeJPEG(f.Image, StreamQuality)
	if err != nil {
		h.log.WithError(err).Warn("Failed to encode stream frame")
		return nil
	}

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(buf)); err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
