package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const DefaultFrameRate = 30.0

// MediaPathFunc resolves the path written on an event's MEDIA PATH line.
type MediaPathFunc func(assetID string) string

// GenerateEDL writes the timeline as a CMX3600 edit decision list. Video
// events come first in timeline order: source in/out are the clip's trim
// offsets and record in/out its span on the timeline. Audio tracks follow as
// A-channel events at their free positions.
func GenerateEDL(doc timeline.Document, title string, frameRate float64, mediaPath MediaPathFunc) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	event := 0
	emit := func(channel string, srcIn, srcOut, recIn float64, name, assetID, url string) {
		event++
		recOut := recIn + (srcOut - srcIn)
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", event, "AX", channel,
				secondsToTimecode(srcIn, fps), secondsToTimecode(srcOut, fps),
				secondsToTimecode(recIn, fps), secondsToTimecode(recOut, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", SanitizeName(name, 160)),
		)
		path := url
		if mediaPath != nil && assetID != "" {
			if p := mediaPath(assetID); p != "" {
				path = p
			}
		}
		if path != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", path))
		}
	}

	for _, c := range doc.Clips {
		emit("V", c.StartOffset, c.StartOffset+c.DurationSeconds, c.StartTime, clipName(c.Name, c.ID), c.AssetID, c.URL)
	}
	for _, a := range doc.AudioTracks {
		emit("A", 0, a.DurationSeconds, a.StartTime, clipName(a.Name, a.ID), a.AssetID, a.URL)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func clipName(name, id string) string {
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}

func secondsToTimecode(seconds float64, fps int) string {
	return msToTimecode(int(math.Round(seconds*1000)), fps)
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
