// Package recorder supervises the external encoder process that performs
// screen, audio and combined captures.
//
// A Supervisor owns at most one recording session. Start launches the encoder
// and either waits for a fixed-duration capture to finish or returns the
// provisional output path of an indefinite one. Stop asks the encoder to quit
// by writing "q" to its stdin, escalates to a kill when the grace period runs
// out, and remuxes Matroska intermediates into MP4. A watcher goroutine per
// session notices encoders that exit on their own and returns the supervisor
// to idle.
//
// Screenshots and device enumeration are one-shot invocations that do not
// touch session state.
package recorder
