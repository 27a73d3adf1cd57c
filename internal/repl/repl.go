// Package repl implements the interactive calculator shell.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"calc-history/internal/calcerr"
	"calc-history/internal/calculator"
	"calc-history/internal/history"
	"calc-history/internal/observability"
)

var (
	promptStyle = color.Cyan
	resultStyle = color.New(color.FgGreen, color.OpBold)
	errorStyle  = color.Red
	noticeStyle = color.Yellow
)

// errCancelled is returned by the number prompts when the user types cancel.
var errCancelled = errors.New("operation cancelled")

// REPL reads commands line by line and drives a Calculator.
type REPL struct {
	calc     *calculator.Calculator
	in       io.Reader
	out      io.Writer
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	lines    *lineReader
}

// Option configures a REPL.
type Option func(*REPL)

// WithLogger sets the logger used for command completion logs.
func WithLogger(logger *zap.Logger) Option {
	return func(r *REPL) { r.logger = logger }
}

// WithGatherer enables the stats command, which prints g in the Prometheus
// text format.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(r *REPL) { r.gatherer = g }
}

func New(calc *calculator.Calculator, in io.Reader, out io.Writer, options ...Option) *REPL {
	r := &REPL{
		calc:   calc,
		in:     in,
		out:    out,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Run loops until exit, end of input or ctx is cancelled. Reaching the end of
// input is not an error; a cancelled ctx returns ctx.Err().
func (r *REPL) Run(ctx context.Context) error {
	if observability.SessionIDFromContext(ctx) == "" {
		ctx = observability.ContextWithSessionID(ctx, observability.NewSessionID())
	}
	logger := observability.LoggerWithTrace(ctx, r.logger)

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	r.lines = newLineReader(ctx, r.in)

	logger.Info("session started")
	defer logger.Info("session ended")

	fmt.Fprintln(r.out, "Calculator started. Type 'help' for commands.")

	for {
		line, err := r.readLine(ctx, promptStyle.Sprint("\nEnter command: "))
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nInput terminated. Exiting...")
				return nil
			}
			fmt.Fprintln(r.out, noticeStyle.Sprint("\nInterrupted. Exiting..."))
			return err
		}

		cmd := strings.ToLower(strings.TrimSpace(line))
		if cmd == "" {
			continue
		}

		if cmd == "exit" {
			_ = observability.RunCommand(ctx, r.logger, cmd, r.exit)
			return nil
		}

		handler := r.handler(cmd)
		if handler == nil {
			fmt.Fprintf(r.out, "Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
			continue
		}

		err = observability.RunCommand(ctx, r.logger, cmd, handler)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out, "\nInput terminated. Exiting...")
			return nil
		}
	}
}

func (r *REPL) handler(cmd string) func(context.Context) error {
	switch cmd {
	case "help":
		return r.help
	case "history":
		return r.history
	case "clear":
		return r.clear
	case "undo":
		return r.undo
	case "redo":
		return r.redo
	case "save":
		return r.save
	case "load":
		return r.load
	case "stats":
		return r.stats
	}

	for _, key := range r.calc.Registry().Commands() {
		if key == cmd {
			return func(ctx context.Context) error { return r.calculate(ctx, cmd) }
		}
	}
	return nil
}

func (r *REPL) help(context.Context) error {
	fmt.Fprintln(r.out, "\nAvailable commands:")
	fmt.Fprintf(r.out, "  %s - Perform arithmetic operations\n", strings.Join(r.calc.Registry().Commands(), ", "))
	fmt.Fprintln(r.out, "  history - Show calculation history")
	fmt.Fprintln(r.out, "  clear - Clear calculation history")
	fmt.Fprintln(r.out, "  undo - Undo the last calculation")
	fmt.Fprintln(r.out, "  redo - Redo the last undone calculation")
	fmt.Fprintln(r.out, "  save - Save calculation history to file")
	fmt.Fprintln(r.out, "  load - Load calculation history from file")
	fmt.Fprintln(r.out, "  stats - Show calculator metrics")
	fmt.Fprintln(r.out, "  exit - Exit the calculator")
	return nil
}

func (r *REPL) history(context.Context) error {
	calcs := r.calc.History()
	if len(calcs) == 0 {
		fmt.Fprintln(r.out, "No calculations in history")
		return nil
	}

	precision := r.calc.Config().Precision
	fmt.Fprintln(r.out, "\nCalculation History:")
	for i, c := range calcs {
		fmt.Fprintf(r.out, "%d: %s(%s, %s) = %s\n", i+1, c.Operation(), c.Operand1(), c.Operand2(), c.FormatResult(precision))
	}
	return nil
}

func (r *REPL) clear(context.Context) error {
	r.calc.ClearHistory()
	fmt.Fprintln(r.out, "History cleared.")
	return nil
}

func (r *REPL) undo(context.Context) error {
	if err := r.calc.Undo(); err != nil {
		if errors.Is(err, history.ErrNothingToUndo) {
			fmt.Fprintln(r.out, noticeStyle.Sprint("Nothing to undo."))
			return nil
		}
		return err
	}
	fmt.Fprintln(r.out, "Last calculation undone.")
	return nil
}

func (r *REPL) redo(context.Context) error {
	if err := r.calc.Redo(); err != nil {
		if errors.Is(err, history.ErrNothingToRedo) {
			fmt.Fprintln(r.out, noticeStyle.Sprint("Nothing to redo."))
			return nil
		}
		return err
	}
	fmt.Fprintln(r.out, "Redo successful.")
	return nil
}

func (r *REPL) save(ctx context.Context) error {
	path, err := r.readLine(ctx, "File to save to (blank for default): ")
	if err != nil {
		return err
	}

	path, err = r.calc.SaveHistory(ctx, strings.TrimSpace(path))
	if err != nil {
		r.printError(err)
		return err
	}
	fmt.Fprintf(r.out, "History saved to %s\n", path)
	return nil
}

func (r *REPL) load(ctx context.Context) error {
	path, err := r.readLine(ctx, "File to load from (blank for default): ")
	if err != nil {
		return err
	}

	path, err = r.calc.LoadHistory(ctx, strings.TrimSpace(path))
	if err != nil {
		r.printError(err)
		return err
	}
	fmt.Fprintf(r.out, "History loaded from %s\n", path)
	return nil
}

func (r *REPL) stats(context.Context) error {
	if r.gatherer == nil {
		fmt.Fprintln(r.out, noticeStyle.Sprint("Metrics are not enabled."))
		return nil
	}
	if err := observability.WriteMetrics(r.out, r.gatherer); err != nil {
		r.printError(err)
		return err
	}
	return nil
}

func (r *REPL) calculate(ctx context.Context, cmd string) error {
	fmt.Fprintln(r.out, "\nEnter numbers (or 'cancel' to abort):")

	a, err := r.readOperand(ctx, "First number: ")
	if err != nil {
		return r.cancelled(err)
	}
	b, err := r.readOperand(ctx, "Second number: ")
	if err != nil {
		return r.cancelled(err)
	}

	if err := r.calc.SetOperation(cmd); err != nil {
		r.printError(err)
		return err
	}

	result, err := r.calc.PerformOperation(ctx, a, b)
	if err != nil {
		r.printError(err)
		return err
	}

	fmt.Fprintf(r.out, "\nResult: %s\n", resultStyle.Sprint(formatResult(result, r.calc.Config().Precision)))
	return nil
}

func (r *REPL) readOperand(ctx context.Context, prompt string) (string, error) {
	s, err := r.readLine(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(s), "cancel") {
		return "", errCancelled
	}
	return s, nil
}

func (r *REPL) cancelled(err error) error {
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(r.out, "Operation cancelled")
		return nil
	}
	return err
}

func (r *REPL) exit(ctx context.Context) error {
	var err error
	if r.calc.Config().AutoSave {
		var path string
		if path, err = r.calc.SaveHistory(ctx, ""); err != nil {
			fmt.Fprintln(r.out, errorStyle.Sprintf("Warning: could not save history: %v", err))
		} else {
			fmt.Fprintf(r.out, "History saved to %s\n", path)
		}
	}
	fmt.Fprintln(r.out, "Goodbye!")
	return err
}

func (r *REPL) printError(err error) {
	if errors.Is(err, calcerr.ErrCalculator) {
		fmt.Fprintln(r.out, errorStyle.Sprintf("Error: %v", err))
		return
	}
	fmt.Fprintln(r.out, errorStyle.Sprintf("Unexpected error: %v", err))
}

func (r *REPL) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	return r.lines.next(ctx)
}

func formatResult(d decimal.Decimal, precision int) string {
	return d.Round(int32(precision)).String()
}

// lineReader scans input on its own goroutine so a blocked read does not
// keep Run from observing cancellation.
type lineReader struct {
	lines chan string
	err   error
}

func newLineReader(ctx context.Context, in io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string)}
	go func() {
		defer close(lr.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lr.lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		lr.err = sc.Err()
	}()
	return lr
}

// next returns the next line, io.EOF at end of input, or ctx.Err().
func (lr *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			if lr.err != nil {
				return "", lr.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}
