package capture

import (
	"bufio"
	"strings"
)

// ParseAudioDevices extracts audio device names from ffmpeg's device listing.
// Matching lines carry both `] "` and `(audio)`; the name sits between the
// opening quote and the last `" (audio)`. Devices are returned in listing order.
func ParseAudioDevices(listing string) []string {
	devices := []string{}
	scanner := bufio.NewScanner(strings.NewReader(listing))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "(audio)") {
			continue
		}
		start := strings.Index(line, `] "`)
		if start < 0 {
			continue
		}
		start += len(`] "`)
		end := strings.LastIndex(line, `" (audio)`)
		if end < start {
			continue
		}
		if name := line[start:end]; name != "" {
			devices = append(devices, name)
		}
	}
	return devices
}
