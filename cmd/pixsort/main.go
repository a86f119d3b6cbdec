// Command pixsort sorts image pixels by channel value and cross-checks the
// CPU and GPU sorters.
//
//	pixsort sort --channel luma -o sorted.png photo.jpg
//	pixsort capture --channels r,g,b -o case.pxsf photo.png
//	pixsort verify --random 20 --length 100000 case.pxsf
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/pixsort"
)

// errMismatch makes the process exit with status 1 without an extra message.
var errMismatch = errors.New("backends disagree")

type globalFlags struct {
	logLevel string
	workers  int
	tieBreak string
	nan      string
}

func (g *globalFlags) modes() (pixsort.TieBreak, pixsort.NaNPolicy, error) {
	tb, err := pixsort.ParseTieBreak(g.tieBreak)
	if err != nil {
		return 0, 0, err
	}
	nan, err := pixsort.ParseNaNPolicy(g.nan)
	if err != nil {
		return 0, 0, err
	}
	return tb, nan, nil
}

func (g *globalFlags) sorterOptions() ([]pixsort.Option, error) {
	tb, nan, err := g.modes()
	if err != nil {
		return nil, err
	}
	return []pixsort.Option{
		pixsort.WithWorkers(g.workers),
		pixsort.WithTieBreak(tb),
		pixsort.WithNaNPolicy(nan),
	}, nil
}

// printer formats counts with digit grouping.
var printer = message.NewPrinter(language.English)

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "pixsort",
		Short:         "Sort pixel offsets by channel value with a bitonic network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			pixsort.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			if g.workers < 1 {
				g.workers = runtime.GOMAXPROCS(0)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.IntVar(&g.workers, "workers", 0, "concurrent files and sort workers (0 = GOMAXPROCS)")
	pf.StringVar(&g.tieBreak, "tie-break", "none", "ordering of equal values: none or offset")
	pf.StringVar(&g.nan, "nan", "last", "NaN placement: last, first or reject")

	root.AddCommand(newSortCommand(g), newCaptureCommand(g), newVerifyCommand(g))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errMismatch) {
			fmt.Fprintln(os.Stderr, "pixsort:", err)
		}
		os.Exit(1)
	}
}
