package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"recagent/internal/services"
)

// ProbeTimeout bounds how long the encoder may take to print its version.
const ProbeTimeout = 5 * time.Second

// ProbeEncoder runs "<binary> -version" and returns the first output line.
// An encoder that is missing, exits non-zero, or hangs past ProbeTimeout is
// reported as unavailable.
func ProbeEncoder(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", services.Wrap(services.ErrConfiguration, "deps", "probe encoder", "encoder binary not configured", nil)
	}
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, binary, "-version")
	cmd.WaitDelay = time.Second
	output, err := cmd.Output()
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
		return "", services.Wrap(services.ErrTimeout, "deps", "probe encoder", binary+" did not answer -version in time", nil)
	}
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "deps", "probe encoder", binary+" -version failed", err)
	}
	return firstLine(output), nil
}

// EncoderStatus combines PATH resolution with a version probe.
func EncoderStatus(ctx context.Context, binary string) Status {
	status := CheckBinaries([]Requirement{{
		Name:        "Encoder",
		Command:     binary,
		Description: "Required for capture, screenshots and remuxing",
	}})[0]
	if !status.Available {
		return status
	}
	version, err := ProbeEncoder(ctx, status.Command)
	if err != nil {
		status.Available = false
		status.Detail = err.Error()
		return status
	}
	status.Detail = version
	return status
}

func firstLine(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
