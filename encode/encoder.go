package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/weiihann/nanobench/scratch"
)

// Payload is one payload slot. At most one of Source, Object and Binary may
// be set; none set means the slot is empty.
type Payload struct {
	// Source is assembly text.
	Source string
	// Object is the path of an assembled object file.
	Object string
	// Binary is the path of ready-to-run machine code.
	Binary string
}

// Variants returns how many of the payload variants are set.
func (p Payload) Variants() int {
	n := 0

	for _, s := range []string{p.Source, p.Object, p.Binary} {
		if s != "" {
			n++
		}
	}

	return n
}

// Empty reports whether no variant is set.
func (p Payload) Empty() bool {
	return p.Variants() == 0
}

// Encoder stages payloads as raw binaries in a scratch directory.
type Encoder struct {
	toolchain Toolchain
	scratch   *scratch.Dir
	logger    *slog.Logger
}

// New returns an Encoder that writes its intermediate files into dir.
func New(tc Toolchain, dir *scratch.Dir, logger *slog.Logger) *Encoder {
	return &Encoder{
		toolchain: tc,
		scratch:   dir,
		logger:    logger.With(slog.String("arch", tc.Arch)),
	}
}

// Toolchain returns the toolchain in use.
func (e *Encoder) Toolchain() Toolchain {
	return e.toolchain
}

// Encode produces the raw binary for p and returns its path. Source is
// assembled and extracted, Object is only extracted, Binary is passed
// through untouched. Intermediate files are named after slot. An empty
// payload yields an empty path.
//
// Callers reject payloads with several variants set; if one gets through,
// Binary wins over Object, which wins over Source.
func (e *Encoder) Encode(ctx context.Context, slot string, p Payload) (string, error) {
	switch {
	case p.Binary != "":
		return p.Binary, nil

	case p.Object != "":
		bin, err := e.scratch.File(slot + ".bin")
		if err != nil {
			return "", err
		}

		if err := e.Extract(ctx, p.Object, bin); err != nil {
			return "", err
		}

		return bin, nil

	case p.Source != "":
		obj, err := e.scratch.File(slot + ".o")
		if err != nil {
			return "", err
		}

		if err := e.Assemble(ctx, p.Source, obj); err != nil {
			return "", err
		}

		bin, err := e.scratch.File(slot + ".bin")
		if err != nil {
			return "", err
		}

		if err := e.Extract(ctx, obj, bin); err != nil {
			var tcErr *ToolchainError
			if errors.As(err, &tcErr) {
				tcErr.Source = p.Source
			}

			return "", err
		}

		return bin, nil

	default:
		return "", nil
	}
}

// Assemble writes the wrapped source next to objPath and assembles it.
func (e *Encoder) Assemble(ctx context.Context, source, objPath string) error {
	asmPath := objPath + ".s"

	if err := os.WriteFile(asmPath, []byte(e.toolchain.wrap(source)), 0o644); err != nil {
		return fmt.Errorf("write assembly %s: %w", asmPath, err)
	}

	return e.invoke(ctx, source, objPath,
		e.toolchain.Assembler, asmPath, "-o", objPath)
}

// Extract copies the raw machine code of objPath into binPath.
func (e *Encoder) Extract(ctx context.Context, objPath, binPath string) error {
	return e.invoke(ctx, "", binPath,
		e.toolchain.Objcopy, objPath, "-O", "binary", binPath)
}

func (e *Encoder) invoke(
	ctx context.Context,
	source, output, tool string,
	args ...string,
) error {
	if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", output, err)
	}

	e.logger.DebugContext(ctx, "running toolchain",
		slog.String("tool", tool),
		slog.Any("args", args),
	)

	cmd := exec.CommandContext(ctx, tool, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		return &ToolchainError{
			Tool:     tool,
			Source:   source,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	if _, err := os.Stat(output); err != nil {
		return &ToolchainError{
			Tool:   tool,
			Source: source,
			Stderr: stderr.String(),
			Err:    fmt.Errorf("output %s not produced: %w", output, err),
		}
	}

	return nil
}
