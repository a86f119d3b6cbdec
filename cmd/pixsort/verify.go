package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/fixture"
	"github.com/gogpu/pixsort/verify"
)

type verifyFlags struct {
	random   int
	length   int
	channels int
	seed     uint64
	cpuOnly  bool
}

func newVerifyCommand(g *globalFlags) *cobra.Command {
	f := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify [flags] [fixtures...]",
		Short: "Compare the GPU sorter against the CPU network",
		Long: `Compare the GPU sorter against the CPU network on fixture files and
random cases. Without a GPU the CPU network is compared against a naive
comparison sort instead. Exits with status 1 when any case disagrees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			if len(args) == 0 && f.random == 0 {
				return fmt.Errorf("nothing to verify: pass fixtures or --random")
			}
			return runVerify(cmd, g, f, args)
		},
	}
	cmd.Flags().IntVar(&f.random, "random", 0, "number of random cases to generate")
	cmd.Flags().IntVar(&f.length, "length", 4096, "pixels per random case")
	cmd.Flags().IntVar(&f.channels, "channels", 3, "channels per random case")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "random case seed")
	cmd.Flags().BoolVar(&f.cpuOnly, "cpu", false, "compare against the naive sort even when a GPU is present")
	return cmd
}

func (f *verifyFlags) validate() error {
	switch {
	case f.random < 0:
		return fmt.Errorf("--random %d: must not be negative", f.random)
	case f.length < 0:
		return fmt.Errorf("--length %d: must not be negative", f.length)
	case f.channels < 1 || f.channels > fixture.MaxChannels:
		return fmt.Errorf("--channels %d: must be in [1, %d]", f.channels, fixture.MaxChannels)
	}
	return nil
}

// verifyCase is one named case to compare.
type verifyCase struct {
	name string
	c    *fixture.Case
}

func runVerify(cmd *cobra.Command, g *globalFlags, f *verifyFlags, paths []string) error {
	tb, nan, err := g.modes()
	if err != nil {
		return err
	}

	cases, err := loadCases(cmd.Context(), g.workers, paths)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(f.seed, f.seed^0x9e3779b97f4a7c15))
	for i := range f.random {
		c := randomCase(rng, f.channels, f.length)
		c.TieBreak, c.NaN = tb, nan
		cases = append(cases, verifyCase{name: fmt.Sprintf("random[%d]", i), c: c})
	}

	var dev *gpuDevice
	if !f.cpuOnly {
		if dev, err = openGPU(); err != nil {
			pixsort.Logger().Warn("pixsort: GPU unavailable, comparing against naive sort", "err", err)
			dev = nil
		} else {
			defer dev.Close()
		}
	}

	reports := make([]*verify.Report, len(cases))
	eg, ctx := errgroup.WithContext(cmd.Context())
	if dev != nil {
		// One device, one case at a time.
		eg.SetLimit(1)
	} else {
		eg.SetLimit(g.workers)
	}
	for i, vc := range cases {
		eg.Go(func() error {
			r, err := compareCase(ctx, dev, g.workers, vc.c)
			if err != nil {
				return fmt.Errorf("%s: %w", vc.name, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	return printReports(cmd.OutOrStdout(), cases, reports)
}

func loadCases(ctx context.Context, workers int, paths []string) ([]verifyCase, error) {
	cases := make([]verifyCase, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := fixture.Load(path)
			if err != nil {
				return err
			}
			cases[i] = verifyCase{name: path, c: c}
			return nil
		})
	}
	return cases, eg.Wait()
}

// compareCase runs the CPU network as reference against the GPU sorter, or
// against the naive sort when dev is nil.
func compareCase(ctx context.Context, dev *gpuDevice, workers int, c *fixture.Case) (*verify.Report, error) {
	ref := newCPUBackend(pixsort.WithWorkers(workers), pixsort.WithTieBreak(c.TieBreak), pixsort.WithNaNPolicy(c.NaN))
	defer ref.Close()

	var cand verify.Backend = verify.NaiveBackend{TieBreak: c.TieBreak, NaN: c.NaN}
	if dev != nil {
		s, err := dev.sorter(c.TieBreak, c.NaN)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		cand = s
	}
	return verify.Compare(ctx, ref, cand, c)
}

func printReports(w io.Writer, cases []verifyCase, reports []*verify.Report) error {
	failed := 0
	for i, r := range reports {
		status := "ok"
		if !r.OK() {
			status = "FAIL"
			failed++
		}
		printer.Fprintf(w, "%-4s %s: %s\n", status, cases[i].name, r)
		if !r.Equal && r.Diff != "" {
			fmt.Fprintln(w, r.Diff)
		}
	}
	printer.Fprintf(w, "%d of %d cases agree\n", len(reports)-failed, len(reports))
	if failed > 0 {
		return errMismatch
	}
	return nil
}

func randomCase(rng *rand.Rand, n, l int) *fixture.Case {
	c := &fixture.Case{Channels: make([][]float32, n), Offsets: make([]uint32, l)}
	for ch := range c.Channels {
		c.Channels[ch] = make([]float32, l)
		for i := range l {
			// Quantised so ties are common.
			c.Channels[ch][i] = float32(rng.IntN(256)) / 255
		}
	}
	for i := range c.Offsets {
		c.Offsets[i] = uint32(i) //nolint:gosec // case length fits uint32
	}
	rng.Shuffle(l, func(i, j int) { c.Offsets[i], c.Offsets[j] = c.Offsets[j], c.Offsets[i] })
	return c
}
