// Package dispatch runs the polling loop that turns remote commands into
// recorder calls.
//
// Each cycle fetches one command, reports "processing", performs the start,
// stop or screenshot, and reports "idle" or "error: <message>". Transport
// failures and recorder errors are reported and the loop keeps going; a
// malformed payload is only logged. An unknown action or recording type ends
// the loop, since the feed is sending something this agent cannot act on.
package dispatch
