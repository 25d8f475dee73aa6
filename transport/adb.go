// Package transport drives a remote device over the Android Debug Bridge.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Error reports a failed adb invocation.
type Error struct {
	Op       string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("adb %s %s failed (exit status %d): %v",
		e.Op, strings.Join(e.Args, " "), e.ExitCode, e.Err)
	if e.Output != "" {
		msg += "\noutput: " + e.Output
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ADB runs push, pull and shell commands through the adb client.
type ADB struct {
	Binary string
	// Serial selects a device when several are attached.
	Serial string
	Logger *slog.Logger
}

// NewADB returns an ADB transport. An empty binary means "adb" on PATH.
func NewADB(binary, serial string, logger *slog.Logger) *ADB {
	if binary == "" {
		binary = "adb"
	}

	return &ADB{
		Binary: binary,
		Serial: serial,
		Logger: logger.With(slog.String("transport", "adb")),
	}
}

// Push copies a local file to the device.
func (a *ADB) Push(ctx context.Context, local, remote string) error {
	_, err := a.run(ctx, "push", local, remote)
	return err
}

// Pull copies a device file to the local machine.
func (a *ADB) Pull(ctx context.Context, remote, local string) error {
	_, err := a.run(ctx, "pull", remote, local)
	return err
}

// Shell executes argv on the device and returns its stdout.
func (a *ADB) Shell(ctx context.Context, argv ...string) (string, error) {
	return a.run(ctx, "shell", argv...)
}

func (a *ADB) run(ctx context.Context, op string, args ...string) (string, error) {
	full := make([]string, 0, len(args)+3)
	if a.Serial != "" {
		full = append(full, "-s", a.Serial)
	}

	full = append(full, op)
	full = append(full, args...)

	a.Logger.DebugContext(ctx, "adb",
		slog.String("op", op),
		slog.Any("args", args),
	)

	cmd := exec.CommandContext(ctx, a.Binary, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		output := stderr.String()
		if output == "" {
			output = stdout.String()
		}

		return "", &Error{
			Op:       op,
			Args:     args,
			ExitCode: exitCode,
			Output:   output,
			Err:      err,
		}
	}

	return stdout.String(), nil
}
