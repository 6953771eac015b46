package console

import (
	"fmt"
	"image"
	_ "image/jpeg" // DecodeConfig on the video frames
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/logger"
)

const (
	sourceProbeDelay   = 2 * time.Second
	sourceProbeTimeout = 10 * time.Second
)

// resolveSourceSize learns the source frame dimensions from the video
// feed itself and applies them to the session. Configured dimensions
// are only provisional; the feed is authoritative, so a successful
// probe always overrides them. Retries until the feed answers or the
// console stops.
func (c *Console) resolveSourceSize() {
	for {
		size, err := c.probeFrameSize()
		if err == nil {
			c.session.SetSourceSize(size)
			logger.Info("Console", "Source frame size resolved: %dx%d", size.Width, size.Height)
			return
		}
		logger.Debug("Console", "Frame size probe failed: %v", err)

		select {
		case <-c.stop:
			return
		case <-time.After(sourceProbeDelay):
		}
	}
}

// probeFrameSize reads the first JPEG part of the MJPEG feed and
// decodes its header for the frame dimensions.
func (c *Console) probeFrameSize() (geometry.Size, error) {
	req, err := http.NewRequest(http.MethodGet, c.videoURL, nil)
	if err != nil {
		return geometry.Size{}, err
	}
	if c.cfg.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Credential)
	}

	client := &http.Client{Timeout: sourceProbeTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return geometry.Size{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return geometry.Size{}, fmt.Errorf("video feed status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return geometry.Size{}, err
	}
	if !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return geometry.Size{}, fmt.Errorf("video feed content type %q", mediaType)
	}

	part, err := multipart.NewReader(resp.Body, params["boundary"]).NextPart()
	if err != nil {
		return geometry.Size{}, err
	}
	cfg, _, err := image.DecodeConfig(part)
	if err != nil {
		return geometry.Size{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return geometry.Size{}, fmt.Errorf("degenerate frame %dx%d", cfg.Width, cfg.Height)
	}
	return geometry.Size{Width: cfg.Width, Height: cfg.Height}, nil
}
