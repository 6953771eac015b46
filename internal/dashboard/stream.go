package dashboard

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"time"

	"github.com/crowdcount/dashboard-server/internal/logger"
)

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

// streamSnapshotsFromChannel streams pre-serialized snapshots to one
// SSE client until it disconnects or the channel closes.
func streamSnapshotsFromChannel(w http.ResponseWriter, eventCh <-chan []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case data, ok := <-eventCh:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				logger.Debug("SSE", "Client disconnected during event write: %v", err)
				return
			}
			flusher.Flush()

		case <-time.After(30 * time.Second):
			// Keepalive comment to prevent proxies timing us out.
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				logger.Debug("SSE", "Client disconnected during keepalive: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

type jpegProvider func() ([]byte, bool)

// streamMJPEG writes multipart JPEG frames at the given interval.
func streamMJPEG(w http.ResponseWriter, interval time.Duration, blank []byte, provider jpegProvider) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		jpegData := blank
		if provider != nil {
			if data, ok := provider(); ok {
				jpegData = data
			}
		}

		if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
			logger.Debug("MJPEG", "Client disconnected during write: %v", err)
			return
		}
		if _, err := w.Write(jpegData); err != nil {
			logger.Debug("MJPEG", "Client disconnected during frame write: %v", err)
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			logger.Debug("MJPEG", "Client disconnected during delimiter write: %v", err)
			return
		}
		flusher.Flush()

		<-ticker.C
	}
}

var backdropColor = color.NRGBA{R: 16, G: 22, B: 42, A: 255}

// newBackdrop paints the dark base layer overlays composite onto.
func newBackdrop(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(backdropColor), image.Point{}, draw.Src)
	return img
}
