// Command znjc is the compiler's CLI surface: one subtool per pass,
// plus a composed "compile" that chains all seven, and an "externs"
// verb for maintaining the arity registry (spec.md 6).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/entropiahr/znj/internal/ast"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/externs"
	"github.com/entropiahr/znj/internal/flat"
	"github.com/entropiahr/znj/internal/flattener"
	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/lexer"
	"github.com/entropiahr/znj/internal/namer"
	"github.com/entropiahr/znj/internal/normalizer"
	"github.com/entropiahr/znj/internal/parser"
	"github.com/entropiahr/znj/internal/pipeline"
)

const externsDBEnv = "ZNJ_EXTERNS_DB"

func externsPath() string {
	if p := os.Getenv(externsDBEnv); p != "" {
		return p
	}
	return "externs.db"
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: znjc <lex|group|parse|name|flatten|normalize|emit|compile|externs> [args]")
	fmt.Fprintln(os.Stderr, "  lex|group|parse|name|flatten|normalize|emit|compile  read source on stdin")
	fmt.Fprintln(os.Stderr, "  externs list")
	fmt.Fprintln(os.Stderr, "  externs add NAME ARITY")
	fmt.Fprintln(os.Stderr, "  -stats flag prints a one-line run summary on compile/emit")
}

func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// reportAndExit prints a diagnostic the way a terminal session expects
// (colorized when stderr is a tty) and exits with the exit code spec.md
// 6 assigns to its error class: 1 for any pass-detected error, 2 for an
// InternalError (an unreachable tag surfacing during lowering).
func reportAndExit(err *diagnostics.CompileError) {
	msg := err.Error()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, msg)
	if err.Code == diagnostics.ErrI001 {
		os.Exit(2)
	}
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %s\n", err)
		os.Exit(2)
	}
}

// dropFlag returns args with every occurrence of name removed.
func dropFlag(args []string, name string) []string {
	var out []string
	for _, a := range args {
		if a != name {
			out = append(out, a)
		}
	}
	return out
}

func containsFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	verb := os.Args[1]
	rest := os.Args[2:]
	stats := containsFlag(rest, "-stats")
	rest = dropFlag(rest, "-stats")

	if verb == "externs" {
		runExterns(rest)
		return
	}

	if verb == "-help" || verb == "--help" || verb == "help" {
		usage()
		return
	}

	source, err := readStdin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stdin: %s\n", err)
		os.Exit(2)
	}

	runID := uuid.New()
	start := time.Now()

	switch verb {
	case "lex":
		toks, cerr := lexer.Lex(source)
		if cerr != nil {
			reportAndExit(cerr)
		}
		printJSON(toks)

	case "group":
		toks, cerr := lexer.Lex(source)
		if cerr != nil {
			reportAndExit(cerr)
		}
		block, cerr := grouper.Group(toks)
		if cerr != nil {
			reportAndExit(cerr)
		}
		printJSON(block)

	case "parse":
		tree, cerr := runToAST(source)
		if cerr != nil {
			reportAndExit(cerr)
		}
		printJSON(tree)

	case "name":
		n, cerr := runToNamed(source)
		if cerr != nil {
			reportAndExit(cerr)
		}
		printJSON(n)

	case "flatten":
		mod, cerr := runToFlat(source)
		if cerr != nil {
			reportAndExit(cerr)
		}
		printJSON(mod)

	case "normalize":
		mod, cerr := runToFlat(source)
		if cerr != nil {
			reportAndExit(cerr)
		}
		reg, dberr := externs.Open(externsPath())
		if dberr != nil {
			fmt.Fprintf(os.Stderr, "open extern registry: %s\n", dberr)
			os.Exit(2)
		}
		defer reg.Close()
		out, cerr := normalizer.Normalize(mod, reg)
		if cerr != nil {
			reportAndExit(cerr)
		}
		printJSON(out)

	case "emit", "compile":
		reg, dberr := externs.Open(externsPath())
		if dberr != nil {
			fmt.Fprintf(os.Stderr, "open extern registry: %s\n", dberr)
			os.Exit(2)
		}
		defer reg.Close()

		ctx := pipeline.NewPipelineContext(source)
		out := pipeline.Compile(reg).Run(ctx)
		if len(out.Errors) > 0 {
			reportAndExit(out.Errors[0])
		}
		fmt.Println(out.IR)
		if stats {
			elapsed := time.Since(start)
			fmt.Fprintf(os.Stderr, "run %s: %s source, %s IR, in %s\n",
				runID, humanize.Bytes(uint64(len(source))), humanize.Bytes(uint64(len(out.IR))), elapsed)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func runToAST(source string) (ast.Node, *diagnostics.CompileError) {
	toks, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	block, err := grouper.Group(toks)
	if err != nil {
		return nil, err
	}
	return parser.Parse(block)
}

func runToNamed(source string) (any, *diagnostics.CompileError) {
	tree, err := runToAST(source)
	if err != nil {
		return nil, err
	}
	return namer.Name(tree)
}

func runToFlat(source string) (*flat.Module, *diagnostics.CompileError) {
	tree, err := runToAST(source)
	if err != nil {
		return nil, err
	}
	n, err := namer.Name(tree)
	if err != nil {
		return nil, err
	}
	return flattener.Flatten(n)
}

func runExterns(args []string) {
	reg, err := externs.Open(externsPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open extern registry: %s\n", err)
		os.Exit(2)
	}
	defer reg.Close()

	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "list":
		all, err := reg.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(2)
		}
		for name, arity := range all {
			fmt.Printf("%s %d\n", name, arity)
		}

	case "add":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: znjc externs add NAME ARITY")
			os.Exit(2)
		}
		arity, convErr := strconv.Atoi(args[2])
		if convErr != nil {
			fmt.Fprintf(os.Stderr, "arity must be an integer: %s\n", convErr)
			os.Exit(2)
		}
		if err := reg.Add(args[1], arity); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(2)
		}

	default:
		usage()
		os.Exit(2)
	}
}
