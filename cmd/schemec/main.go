// Command schemec compiles and runs a single Scheme source file, the way
// cmd/nux compiles and runs a single .nux program: trace flags for
// per-instruction and compile-time diagnostics to stderr, and a plain run
// otherwise. There is no step-by-step debug prompt.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmay/goscheme/pkg/compiler"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/primitives"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/vm"
)

var (
	traceFlag    = flag.Bool("trace", false, "show per-instruction VM execution trace")
	compileTrace = flag.Bool("trace-compile", false, "show reader/compiler diagnostics")
)

func main() {
	flag.Parse()

	if len(flag.Args()) < 1 {
		fmt.Println("Usage: schemec [options] <program.scm>")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	filename := flag.Args()[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	h := heap.New()
	syms := symtab.New()
	machine := vm.New(h, syms, vm.WithTrace(*traceFlag))
	primitives.Install(h, syms, machine)

	chunk, err := compiler.New(h, syms, compiler.WithTrace(*compileTrace)).Compile(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}

	result, err := machine.Run(chunk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "---Runtime error---\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !result.IsUnspecified() {
		fmt.Println(primitives.WriteString(syms, result))
	}
}
