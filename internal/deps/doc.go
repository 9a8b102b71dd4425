// Package deps checks that the external binaries the agent drives are
// installed and answer a version probe.
package deps
