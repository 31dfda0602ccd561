package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"time"
)

const renderTimeout = 30 * time.Second

// FrameRenderer decodes single frames out of a video file.
type FrameRenderer interface {
	// RenderPreview picks a representative frame at the target resolution.
	RenderPreview(ctx context.Context, location string) (image.Image, error)

	// RenderFrame decodes the frame at a specific offset into the clip.
	RenderFrame(ctx context.Context, location string, at time.Duration) (image.Image, error)
}

// FFRenderer renders frames using the ffmpeg binary, emitting JPEG to
// stdout and decoding it in-process. It never writes next to the source
// file.
type FFRenderer struct {
	ffmpegPath string
	width      int
	height     int
}

func NewFFRenderer(width, height int) *FFRenderer {
	return &FFRenderer{
		ffmpegPath: "ffmpeg",
		width:      width,
		height:     height,
	}
}

func (r *FFRenderer) RenderPreview(ctx context.Context, location string) (image.Image, error) {
	// The thumbnail filter scans the start of the stream for a
	// representative frame instead of blindly taking the first one.
	args := []string{
		"-i", location,
		"-vf", fmt.Sprintf("thumbnail,scale=%d:%d", r.width, r.height),
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	return r.run(ctx, args)
}

func (r *FFRenderer) RenderFrame(ctx context.Context, location string, at time.Duration) (image.Image, error) {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", at.Seconds()),
		"-i", location,
		"-vf", fmt.Sprintf("scale=%d:%d", r.width, r.height),
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	return r.run(ctx, args)
}

func (r *FFRenderer) run(ctx context.Context, args []string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
