// Command schemerepl is an interactive Scheme read-eval-print loop, in the
// shape of cmd/luxrepl's REPL type: a banner, a prompt, a small set of
// dot-commands alongside ordinary evaluation, and state (here, the shared
// heap/symbol-table/VM triple) that persists across lines rather than being
// rebuilt per input the way cmd/luxrepl rebuilds its stack from history.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/rmay/goscheme/pkg/compiler"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/primitives"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
	"github.com/rmay/goscheme/pkg/vm"
)

type REPL struct {
	scanner *bufio.Scanner
	heap    *heap.Heap
	syms    *symtab.Table
	vm      *vm.VM
	compile *compiler.Compiler

	interactive bool
	lastResult  value.Value
	haveResult  bool
}

func NewREPL() *REPL {
	h := heap.New()
	syms := symtab.New()
	machine := vm.New(h, syms)
	primitives.Install(h, syms, machine)

	return &REPL{
		scanner:     bufio.NewScanner(os.Stdin),
		heap:        h,
		syms:        syms,
		vm:          machine,
		compile:     compiler.New(h, syms),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

func (r *REPL) Run() {
	if r.interactive {
		r.printBanner()
	}

	for {
		if r.interactive {
			fmt.Print("scheme> ")
		}

		if !r.scanner.Scan() {
			break
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		if r.handleCommand(line) {
			continue
		}

		r.evaluate(line)
	}
}

func (r *REPL) printBanner() {
	fmt.Println("╔═══════════════════════════════╗")
	fmt.Println("║         SCHEME REPL            ║")
	fmt.Println("║   R5RS-subset, bytecode VM     ║")
	fmt.Println("╚═══════════════════════════════╝")
	fmt.Println()
	fmt.Println("Type ,help for commands, ,exit to quit")
	fmt.Println()
}

func (r *REPL) handleCommand(line string) bool {
	if !strings.HasPrefix(line, ",") {
		return false
	}
	switch line {
	case ",exit", ",quit", ",q":
		fmt.Println("Goodbye!")
		os.Exit(0)

	case ",help", ",?":
		r.printHelp()

	case ",gc":
		before := r.heap.Stats()
		r.heap.Collect()
		after := r.heap.Stats()
		fmt.Printf("  gc: %d -> %d live objects (%d collections total)\n", before.Live, after.Live, after.Collections)

	case ",copy":
		if !r.haveResult {
			fmt.Println("  nothing to copy yet")
			break
		}
		text := primitives.WriteString(r.syms, r.lastResult)
		if err := clipboard.WriteAll(text); err != nil {
			fmt.Printf("  clipboard error: %v\n", err)
			break
		}
		fmt.Println("  copied to clipboard")

	default:
		fmt.Printf("  unknown command %q (try ,help)\n", line)
	}
	return true
}

func (r *REPL) evaluate(line string) {
	chunk, err := r.compile.Compile(line)
	if err != nil {
		fmt.Printf("Compile error: %v\n", err)
		return
	}

	result, err := r.vm.Run(chunk)
	if err != nil {
		fmt.Printf("Runtime error: %v\n", err)
		return
	}

	r.lastResult, r.haveResult = result, true
	if !result.IsUnspecified() {
		fmt.Println(primitives.WriteString(r.syms, result))
	}
}

func (r *REPL) printHelp() {
	fmt.Println("\n═══ Scheme REPL commands ═══")
	fmt.Println("  ,help, ,?    - show this help")
	fmt.Println("  ,exit, ,quit, ,q - exit the REPL")
	fmt.Println("  ,gc          - force a garbage collection, report live objects")
	fmt.Println("  ,copy        - copy the last result to the system clipboard")
	fmt.Println()
	fmt.Println("═══ Examples ═══")
	fmt.Println("  scheme> (+ 1 2 3)")
	fmt.Println("  scheme> (define (fact n) (if (= n 0) 1 (* n (fact (- n 1)))))")
	fmt.Println("  scheme> (fact 10)")
	fmt.Println("  scheme> (call/cc (lambda (k) (+ 1 (k 42))))")
	fmt.Println()
}

func main() {
	NewREPL().Run()
}
