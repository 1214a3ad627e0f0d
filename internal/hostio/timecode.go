package hostio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRate extracts a frame rate from the host's display string. Flame
// reports rates like "23.976 fps" or "25". Drop-frame rates are treated as
// their decimal value.
func ParseRate(s string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "fps"))
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "DF"))
	rate, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("hostio: invalid frame rate %q", s)
	}
	return rate, nil
}

// SecondsToFrame converts a time offset in seconds to a frame count,
// rounding to the nearest frame.
func SecondsToFrame(seconds, rate float64) int64 {
	return int64(math.Round(seconds * rate))
}

// FrameToTimecode renders a frame count as HH:MM:SS:FF. Fractional rates
// are rounded up to the nominal rate for the frames field (23.976 counts
// frames 0-23), matching how the host displays non-drop timecode.
func FrameToTimecode(frame int64, rate float64) string {
	if frame < 0 {
		frame = 0
	}
	nominal := int64(math.Ceil(rate - 1e-9))
	if nominal < 1 {
		nominal = 1
	}
	ff := frame % nominal
	totalSeconds := frame / nominal
	hh := totalSeconds / 3600
	mm := (totalSeconds % 3600) / 60
	ss := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hh, mm, ss, ff)
}

// ParseTimecode converts HH:MM:SS:FF to a frame count at the given rate.
func ParseTimecode(tc string, rate float64) (int64, error) {
	parts := strings.Split(strings.TrimSpace(tc), ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("hostio: invalid timecode %q", tc)
	}
	vals := make([]int64, 4)
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("hostio: invalid timecode %q", tc)
		}
		vals[i] = n
	}
	nominal := int64(math.Ceil(rate - 1e-9))
	if nominal < 1 {
		return 0, fmt.Errorf("hostio: invalid frame rate %v", rate)
	}
	seconds := vals[0]*3600 + vals[1]*60 + vals[2]
	return seconds*nominal + vals[3], nil
}
