// Command vexc is a minimal driver binary exercising the three core entry
// points (internal/compiler.Parse/Check/Compile) from the command line. It
// deliberately stays thin glue only — grounded on the teacher's main.go
// (run(opt) orchestration) and util.ParseArgs/util.ReadSource — and does not
// grow into the full CLI surface (add/remove/list/update, package manager,
// formatter, LSP) spec.md §6 names as external collaborators.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vex-lang/vex/internal/compiler"
	"github.com/vex-lang/vex/internal/config"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/source"
)

// readSource mirrors the teacher's util.ReadSource (src/util/io.go): read a
// named file, or fall back to stdin with a short timeout so a forgotten
// invocation does not hang the terminal forever.
func readSource(opt config.Options) (string, error) {
	if len(opt.Src) > 0 {
		b, err := ioutil.ReadFile(opt.Src)
		return string(b), err
	}

	c := make(chan string)
	cerr := make(chan error)
	go func() {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil {
			c <- text
		} else {
			cerr <- err
		}
	}()

	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case s := <-c:
		return s, nil
	case err := <-cerr:
		return "", err
	}
}

// run drives one compilation the way the teacher's run(opt) does: read
// source, compile, report diagnostics, write the requested artefact. It
// returns the stable exit-code class spec.md §6 requires (0 success, or the
// class of the worst-phase error diagnostic reported).
func run(opt config.Options) (int, error) {
	text, err := readSource(opt)
	if err != nil {
		return 1, fmt.Errorf("could not read source: %w", err)
	}

	sm := source.NewMap()
	path := opt.Src
	if path == "" {
		path = "<stdin>"
	}
	sm.Add(path, text)

	if opt.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	result := compiler.Compile(sm, opt)
	printDiagnostics(result.Diagnostics, opt.JSON)

	if class := exitClass(result.Diagnostics); class != 0 {
		return class, errors.New("compilation failed")
	}

	return 0, writeOutput(opt, result.ModuleIR)
}

func printDiagnostics(ds []*diag.Diagnostic, asJSON bool) {
	for _, d := range ds {
		if asJSON {
			s, err := d.ToJSON(false)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Println(s)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: %s [%s] %s:%d:%d\n",
			d.Severity, d.Message, d.Code, d.Primary.File, d.Primary.Line, d.Primary.Column)
		if d.Remedy != "" {
			fmt.Fprintf(os.Stderr, "  help: %s\n", d.Remedy)
		}
	}
}

func writeOutput(opt config.Options, ir string) error {
	if ir == "" {
		return nil
	}
	if opt.Out == "" {
		fmt.Println(ir)
		return nil
	}
	return ioutil.WriteFile(opt.Out, []byte(ir), 0644)
}

// exitClass assigns the stable exit-code classes spec.md §6 requires:
// 0 success, 1 parse/lex, 2 check (type/module), 3 borrow, 4 link/codegen.
func exitClass(ds []*diag.Diagnostic) int {
	worst := 0
	for _, d := range ds {
		if d.Severity != diag.SeverityError {
			continue
		}
		var class int
		switch d.Phase {
		case diag.PhaseLex, diag.PhaseParse:
			class = 1
		case diag.PhaseModule, diag.PhaseTypes:
			class = 2
		case diag.PhaseBorrow:
			class = 3
		case diag.PhaseCodegen, diag.PhaseInternal:
			class = 4
		}
		if class > worst {
			worst = class
		}
	}
	return worst
}

func main() {
	opt, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %s\n", err)
		os.Exit(1)
	}

	class, err := run(opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	}
	os.Exit(class)
}
