// Package config generalizes the teacher's util.Options/util.ParseArgs
// (src/util/args.go) into the compiler-core options spec.md §2's expanded
// ambient stack calls for: optimisation level, textual-IR emission,
// target-triple fields kept for downstream backends even though this core
// only ever emits textual LLVM IR, a parallel-compilation thread count,
// verbosity, and a JSON diagnostics flag.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Arch enumerates target architectures, kept from the teacher's
// src/util/args.go identically named constants so a downstream backend can
// still consult Options.TargetArch even though this core never lowers past
// textual IR.
type Arch int

const (
	UnknownArch Arch = iota
	X86_64
	X86_32
	Aarch64
	Riscv64
	Riscv32
)

func (a Arch) String() string {
	switch a {
	case X86_64:
		return "x86_64"
	case X86_32:
		return "x86_32"
	case Aarch64:
		return "aarch64"
	case Riscv64:
		return "riscv64"
	case Riscv32:
		return "riscv32"
	default:
		return "unknown"
	}
}

// OS enumerates target operating systems, analogous to the teacher's
// TargetOS field.
type OS int

const (
	UnknownOS OS = iota
	Linux
	Windows
	MacOS
)

func (o OS) String() string {
	switch o {
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	case MacOS:
		return "mac"
	default:
		return "unknown"
	}
}

// maxThreads bounds -t the same way the teacher's maxThreads constant does.
const maxThreads = 64

// defaultOptLevel is applied when -O is not passed.
const defaultOptLevel = 1

// Options collects every flag the driver and cmd/vexc understand. It plays
// the role of the teacher's util.Options, widened with the fields spec.md §2
// names: OptLevel, EmitLLVM, JSON, in addition to the teacher's
// Threads/Verbose/target-triple fields.
type Options struct {
	Src  string // path to the entry source file
	Out  string // path to the output file; empty means stdout

	OptLevel int  // -O 0..3, default 1
	EmitLLVM bool // --emit-llvm: print textual LLVM IR and stop short of further codegen-side passes
	JSON     bool // --json: emit diagnostics as JSON instead of human-readable text

	Threads int  // -t: thread count for parallel compilation of independent modules
	Verbose bool // -vb: log phase timings and decisions via logrus

	TargetArch Arch
	TargetOS   OS
}

// DefaultOptions returns the zero-flag configuration: opt level 1, one
// thread, human-readable diagnostics, no target triple pinned.
func DefaultOptions() Options {
	return Options{OptLevel: defaultOptLevel, Threads: 1}
}

// ParseArgs parses os.Args the way the teacher's util.ParseArgs parses its
// own flag set (src/util/args.go): a flat switch over exactly the flags this
// core understands, with the last bare argument taken as the source path.
func ParseArgs(args []string) (Options, error) {
	opt := DefaultOptions()
	if len(args) == 0 {
		return opt, nil
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			printHelp()
			os.Exit(0)
		case "--emit-llvm":
			opt.EmitLLVM = true
		case "--json":
			opt.JSON = true
		case "-vb", "--verbose":
			opt.Verbose = true
		case "-o":
			v, err := flagArg(args, &i)
			if err != nil {
				return opt, err
			}
			opt.Out = v
		case "-O":
			v, err := flagArg(args, &i)
			if err != nil {
				return opt, err
			}
			lvl, err := strconv.Atoi(v)
			if err != nil || lvl < 0 || lvl > 3 {
				return opt, fmt.Errorf("-O expects an integer in range [0, 3], got %q", v)
			}
			opt.OptLevel = lvl
		case "-t":
			v, err := flagArg(args, &i)
			if err != nil {
				return opt, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxThreads {
				return opt, fmt.Errorf("-t expects an integer in range [1, %d], got %q", maxThreads, v)
			}
			opt.Threads = n
		case "-arch":
			v, err := flagArg(args, &i)
			if err != nil {
				return opt, err
			}
			a, err := parseArch(v)
			if err != nil {
				return opt, err
			}
			opt.TargetArch = a
		case "-os":
			v, err := flagArg(args, &i)
			if err != nil {
				return opt, err
			}
			o, err := parseOS(v)
			if err != nil {
				return opt, err
			}
			opt.TargetOS = o
		default:
			if strings.HasPrefix(args[i], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i])
			}
			opt.Src = args[i]
		}
	}
	return opt, nil
}

func flagArg(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("flag %s expects an argument", args[*i])
	}
	*i++
	return args[*i], nil
}

func parseArch(s string) (Arch, error) {
	switch s {
	case "x86_64":
		return X86_64, nil
	case "x86_32":
		return X86_32, nil
	case "aarch64":
		return Aarch64, nil
	case "riscv64":
		return Riscv64, nil
	case "riscv32":
		return Riscv32, nil
	default:
		return UnknownArch, fmt.Errorf("unexpected architecture identifier: %s", s)
	}
}

func parseOS(s string) (OS, error) {
	switch s {
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	case "mac":
		return MacOS, nil
	default:
		return UnknownOS, fmt.Errorf("unexpected operating system identifier: %s", s)
	}
}

func printHelp() {
	fmt.Println("vexc [options] <source file>")
	fmt.Println("  -o <path>       write output to path instead of stdout")
	fmt.Println("  -O <0..3>       optimisation level, default 1")
	fmt.Println("  --emit-llvm     emit textual LLVM IR")
	fmt.Println("  --json          emit diagnostics as JSON")
	fmt.Println("  -t <n>          compile independent modules across n threads")
	fmt.Println("  -vb, --verbose  log phase timings and decisions")
	fmt.Println("  -arch <name>    target architecture triple field (x86_64, aarch64, riscv64, riscv32)")
	fmt.Println("  -os <name>      target operating system triple field (linux, windows, mac)")
	fmt.Println("  -h, --help      print this message and exit")
}
