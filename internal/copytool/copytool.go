// Package copytool wraps the external block-copy tool used to move disk
// bytes between managed disks.
//
// The tool receives a time-boxed read endpoint for the source disk and a
// time-boxed write endpoint for the destination disk and performs a whole
// device copy. Success is signalled only through process exit status.
package copytool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner performs a whole-device copy between a readable source endpoint and
// a writable destination endpoint.
type Runner interface {
	Copy(ctx context.Context, sourceURL, destinationURL string) error
}

// ExitError reports a nonzero exit from the copy tool. The clone step treats
// it as fatal to the whole run.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("copy tool exited with status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the tool exit status from an error, or -1 if the error
// did not come from a tool exit.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// AzCopy runs the azcopy binary for disk-to-disk transfers.
type AzCopy struct {
	// Path is the resolved binary path.
	Path string

	// Stdout and Stderr receive the tool's own progress output. They default
	// to the process streams so the operator sees transfer progress live.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns an AzCopy runner for the binary at path.
func New(path string) *AzCopy {
	return &AzCopy{
		Path:   path,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Copy performs a server-side whole-device copy from sourceURL to
// destinationURL. Managed disk exports are page blobs, so the transfer is
// forced into page-blob mode to keep the byte layout intact.
func (a *AzCopy) Copy(ctx context.Context, sourceURL, destinationURL string) error {
	// #nosec G204 - endpoints are SAS URLs issued by the platform, the binary
	// path was resolved during preflight.
	cmd := exec.CommandContext(ctx, a.Path, "copy", sourceURL, destinationURL,
		"--blob-type", "PageBlob",
		"--s2s-preserve-access-tier=false")
	cmd.Stdout = a.Stdout
	cmd.Stderr = a.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("failed to run copy tool: %w", err)
	}
	return nil
}
