package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary the agent shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolved on this host.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = resolved
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
