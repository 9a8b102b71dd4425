// Command recagent is the recording agent.
//
// "recagent run" polls the control service and drives the encoder. The other
// subcommands perform one capture action directly and exit, which is useful
// for testing a host's encoder setup without a control service.
package main
