package encode

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/nanobench/scratch"
)

// copyAs mimics `as <in> -o <out>` and copyObjcopy mimics
// `objcopy <in> -O binary <out>` by copying the input through.
const (
	copyAs      = `cp "$1" "$3"`
	copyObjcopy = `cp "$1" "$4"`
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func newTestEncoder(t *testing.T, asBody, objcopyBody string) (*Encoder, string) {
	t.Helper()

	bin := t.TempDir()
	stage := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tc := X86()
	tc.Assembler = writeScript(t, bin, "as", asBody)
	tc.Objcopy = writeScript(t, bin, "objcopy", objcopyBody)

	dir := scratch.New(scratch.Options{Dir: stage}, logger)
	t.Cleanup(func() { dir.Close() })

	return New(tc, dir, logger), stage
}

func TestEncodeSource(t *testing.T) {
	enc, stage := newTestEncoder(t, copyAs, copyObjcopy)

	bin, err := enc.Encode(context.Background(), "code", Payload{Source: "nop"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stage, "code.bin"), bin)

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Equal(t, ".intel_syntax noprefix;nop;1:;.att_syntax prefix\n", string(data))
}

func TestEncodeIsIdempotent(t *testing.T) {
	enc, _ := newTestEncoder(t, copyAs, copyObjcopy)
	ctx := context.Background()

	first, err := enc.Encode(ctx, "init", Payload{Source: "mov rax, 1"})
	require.NoError(t, err)
	firstData, err := os.ReadFile(first)
	require.NoError(t, err)

	second, err := enc.Encode(ctx, "init", Payload{Source: "mov rax, 1"})
	require.NoError(t, err)
	secondData, err := os.ReadFile(second)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstData, secondData)
}

func TestEncodeObjectSkipsAssembler(t *testing.T) {
	enc, stage := newTestEncoder(t, `exit 42`, copyObjcopy)

	obj := filepath.Join(t.TempDir(), "prebuilt.o")
	require.NoError(t, os.WriteFile(obj, []byte("object"), 0o644))

	bin, err := enc.Encode(context.Background(), "code", Payload{Object: obj})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stage, "code.bin"), bin)
}

func TestEncodeBinaryPassesThrough(t *testing.T) {
	enc, _ := newTestEncoder(t, `exit 42`, `exit 42`)

	bin, err := enc.Encode(context.Background(), "code", Payload{Binary: "/opt/code.bin"})
	require.NoError(t, err)
	assert.Equal(t, "/opt/code.bin", bin)
}

func TestEncodeEmpty(t *testing.T) {
	enc, _ := newTestEncoder(t, `exit 42`, `exit 42`)

	bin, err := enc.Encode(context.Background(), "one_time_init", Payload{})
	require.NoError(t, err)
	assert.Empty(t, bin)
}

func TestEncodeVariantPriority(t *testing.T) {
	enc, stage := newTestEncoder(t, `exit 42`, copyObjcopy)
	ctx := context.Background()

	bin, err := enc.Encode(ctx, "code", Payload{Source: "nop", Binary: "/opt/code.bin"})
	require.NoError(t, err)
	assert.Equal(t, "/opt/code.bin", bin)

	obj := filepath.Join(t.TempDir(), "prebuilt.o")
	require.NoError(t, os.WriteFile(obj, []byte("object"), 0o644))

	// The failing assembler proves Source is ignored when Object is set.
	bin, err = enc.Encode(ctx, "code", Payload{Source: "nop", Object: obj})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stage, "code.bin"), bin)
}

func TestEncodeMeasuredRegionMarkers(t *testing.T) {
	enc, _ := newTestEncoder(t, copyAs, copyObjcopy)

	source := PFCStart + ";nop;" + PFCStop
	bin, err := enc.Encode(context.Background(), "code", Payload{Source: source})
	require.NoError(t, err)

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Equal(t,
		".intel_syntax noprefix;.quad 0xE0b513b1C2813F04;nop;.quad 0xF0b513b1C2813F04;1:;.att_syntax prefix\n",
		string(data))
}

func TestEncodeAssemblerFailure(t *testing.T) {
	enc, _ := newTestEncoder(t, `echo "bad instruction" >&2; exit 3`, copyObjcopy)

	_, err := enc.Encode(context.Background(), "code", Payload{Source: "bogus rax"})
	require.Error(t, err)

	var tcErr *ToolchainError
	require.ErrorAs(t, err, &tcErr)
	assert.Equal(t, 3, tcErr.ExitCode)
	assert.Equal(t, "bogus rax", tcErr.Source)
	assert.Contains(t, tcErr.Stderr, "bad instruction")
	assert.Contains(t, err.Error(), "bogus rax")
}

func TestEncodeMissingOutput(t *testing.T) {
	enc, _ := newTestEncoder(t, copyAs, `exit 0`)

	_, err := enc.Encode(context.Background(), "code", Payload{Source: "nop"})

	var tcErr *ToolchainError
	require.ErrorAs(t, err, &tcErr)
	assert.Equal(t, 0, tcErr.ExitCode)
	assert.Equal(t, "nop", tcErr.Source)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestForArch(t *testing.T) {
	tc, err := ForArch("arm64")
	require.NoError(t, err)
	assert.Equal(t, "aarch64-linux-android-as", tc.Assembler)
	assert.Equal(t, ".arch armv8-a\nnop;1:;\n", tc.wrap("nop"))

	_, err = ForArch("mips")
	require.Error(t, err)
}
