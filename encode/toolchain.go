// Package encode turns benchmark snippets into raw machine code by driving
// an external assembler and objcopy.
package encode

import (
	"fmt"
)

// PFCStart and PFCStop are magic byte sequences that mark where the
// measured region of a benchmark starts and stops when embedded in the code.
const (
	PFCStart = ".quad 0xE0b513b1C2813F04"
	PFCStop  = ".quad 0xF0b513b1C2813F04"
)

// Toolchain describes the assembler and binary extractor for one target
// architecture, plus the text wrapped around every snippet.
type Toolchain struct {
	Arch      string
	Assembler string
	Objcopy   string
	Prelude   string
	Epilogue  string
}

// X86 is the host toolchain for x86-64 targets. Snippets use Intel syntax.
func X86() Toolchain {
	return Toolchain{
		Arch:      "x86-64",
		Assembler: "as",
		Objcopy:   "objcopy",
		Prelude:   ".intel_syntax noprefix;",
		Epilogue:  ";1:;.att_syntax prefix\n",
	}
}

// AArch64 is the Android NDK cross toolchain. The NDK bin directory must be
// on PATH.
func AArch64() Toolchain {
	return Toolchain{
		Arch:      "aarch64",
		Assembler: "aarch64-linux-android-as",
		Objcopy:   "aarch64-linux-android-objcopy",
		Prelude:   ".arch armv8-a\n",
		Epilogue:  ";1:;\n",
	}
}

// KnownArchs returns the supported architecture names.
func KnownArchs() []string {
	return []string{"x86-64", "aarch64"}
}

// ForArch returns the toolchain for the named architecture.
func ForArch(arch string) (Toolchain, error) {
	switch arch {
	case "x86-64", "x86_64", "amd64":
		return X86(), nil
	case "aarch64", "arm64":
		return AArch64(), nil
	default:
		return Toolchain{}, fmt.Errorf("unknown architecture %q", arch)
	}
}

// wrap returns the assembler input for a snippet.
func (t Toolchain) wrap(source string) string {
	return t.Prelude + source + t.Epilogue
}
