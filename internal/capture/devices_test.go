package capture_test

import (
	"slices"
	"testing"

	"recagent/internal/capture"
)

const dshowListing = `ffmpeg version 6.1 Copyright (c) 2000-2023 the FFmpeg developers
[dshow @ 000001] "Integrated Camera" (video)
[dshow @ 000001]   Alternative name "@device_pnp_\\?\usb#vid_04f2"
[dshow @ 000001] "Microphone Array (Realtek(R) Audio)" (audio)
[dshow @ 000001]   Alternative name "@device_cm_{33D9A762}\wave_{A1}"
[dshow @ 000001] "Stereo Mix "Loopback"" (audio)
dummy: Immediate exit requested
`

func TestParseAudioDevicesSourceOrder(t *testing.T) {
	got := capture.ParseAudioDevices(dshowListing)
	want := []string{"Microphone Array (Realtek(R) Audio)", `Stereo Mix "Loopback"`}
	if !slices.Equal(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestParseAudioDevicesEmpty(t *testing.T) {
	for _, listing := range []string{"", "[dshow @ 1] \"Camera\" (video)\n", "no devices here"} {
		got := capture.ParseAudioDevices(listing)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice for %q, got %#v", listing, got)
		}
	}
}

func FuzzParseAudioDevices(f *testing.F) {
	f.Add(dshowListing)
	f.Add(`] " (audio)`)
	f.Fuzz(func(t *testing.T, listing string) {
		for _, name := range capture.ParseAudioDevices(listing) {
			if name == "" {
				t.Fatalf("parser returned empty device name for %q", listing)
			}
		}
	})
}
