package media

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = 15 * time.Second

// Prober extracts the duration of a media file.
type Prober interface {
	Probe(ctx context.Context, location string) (time.Duration, error)
}

// FFProber probes durations using the ffprobe binary.
type FFProber struct {
	ffprobePath string
}

func NewFFProber() *FFProber {
	return &FFProber{ffprobePath: "ffprobe"}
}

func (p *FFProber) Probe(ctx context.Context, location string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		location,
	}
	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(string(output))
	if raw == "" {
		return 0, errors.New("empty duration")
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, errors.New("negative duration")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
