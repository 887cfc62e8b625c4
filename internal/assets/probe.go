package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// ProbeResult is the subset of container metadata the editor needs.
type ProbeResult struct {
	DurationSeconds float64
	FormatName      string
	HasVideo        bool
	HasAudio        bool
	Width           int
	Height          int
}

type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// FFprobe shells out to the ffprobe binary.
type FFprobe struct {
	path string
}

func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{path: path}
}

// Available reports whether the ffprobe binary can be found.
func (p *FFprobe) Available() bool {
	_, err := exec.LookPath(p.path)
	return err == nil
}

func (p *FFprobe) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	cmd := exec.CommandContext(ctx, p.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeOutput(output)
}

// probeOutput matches ffprobe's JSON output.
type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	res := &ProbeResult{FormatName: out.Format.FormatName}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		res.DurationSeconds = d
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			res.HasVideo = true
			res.Width, res.Height = s.Width, s.Height
		case "audio":
			res.HasAudio = true
		}
		// Some containers only carry duration on the stream.
		if res.DurationSeconds <= 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
				res.DurationSeconds = d
			}
		}
	}

	if res.DurationSeconds <= 0 {
		return nil, fmt.Errorf("ffprobe reported no duration")
	}
	return res, nil
}
