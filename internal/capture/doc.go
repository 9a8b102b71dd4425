// Package capture builds ffmpeg argument vectors for screen, audio and combined
// recordings, screenshots, device enumeration and container remuxing.
//
// Everything here is pure: the functions take a Backend (which capture devices
// the platform exposes), a mode, a quality level and an output path, and return
// the argv to hand to the encoder. Output naming and the parsing of ffmpeg's
// device listing live here too so they can be tested without a subprocess.
package capture
