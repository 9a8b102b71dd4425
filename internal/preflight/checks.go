package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const controlServiceTimeout = 5 * time.Second

// CheckControlService verifies the control service answers HTTP. Any response
// counts; the command endpoint is never hit so no pending command is consumed.
func CheckControlService(ctx context.Context, baseURL string) Result {
	const name = "Control service"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, controlServiceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", base, err)}
	}
	client := &http.Client{Timeout: controlServiceTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %v)", base, err)}
	}
	_ = resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (HTTP %d)", base, resp.StatusCode)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable and
// writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
