package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/imagekey"
)

type sortFlags struct {
	channel string
	useGPU  bool
	output  string
	maxSide int
}

func newSortCommand(g *globalFlags) *cobra.Command {
	f := &sortFlags{}
	cmd := &cobra.Command{
		Use:   "sort [flags] images...",
		Short: "Rearrange each image's pixels in ascending channel order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.output != "" && len(args) > 1 {
				return errors.New("-o needs exactly one input image")
			}
			return runSort(cmd, g, f, args)
		},
	}
	cmd.Flags().StringVar(&f.channel, "channel", "luma", "sort key: red, green, blue, alpha, luma, luminance, hue, saturation or lightness")
	cmd.Flags().BoolVar(&f.useGPU, "gpu", false, "sort on the GPU, falling back to the CPU when no device opens")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output path (default <input>.sorted.png)")
	cmd.Flags().IntVar(&f.maxSide, "max-side", 0, "downscale inputs so no side exceeds this many pixels (0 = keep size)")
	return cmd
}

func runSort(cmd *cobra.Command, g *globalFlags, f *sortFlags, inputs []string) error {
	kind, err := imagekey.ParseKind(f.channel)
	if err != nil {
		return err
	}
	opts, err := g.sorterOptions()
	if err != nil {
		return err
	}

	var (
		backend closingBackend = newCPUBackend(opts...)
		dev     *gpuDevice
	)
	if f.useGPU {
		b, d, err := openGPUBackend(g)
		if err != nil {
			pixsort.Logger().Warn("pixsort: GPU unavailable, sorting on CPU", "err", err)
		} else {
			backend.Close()
			backend, dev = b, d
			pixsort.Logger().Info("pixsort: sorting on GPU", "adapter", dev.name())
		}
	}
	defer func() {
		backend.Close()
		if dev != nil {
			dev.Close()
		}
	}()

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(g.workers)
	for _, in := range inputs {
		eg.Go(func() error {
			out := f.output
			if out == "" {
				out = strings.TrimSuffix(in, filepath.Ext(in)) + ".sorted.png"
			}
			n, err := sortImage(ctx, backend, kind, f.maxSide, in, out)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			printer.Fprintf(cmd.OutOrStdout(), "%s: %d pixels by %s -> %s\n", in, n, kind, out)
			return nil
		})
	}
	return eg.Wait()
}

func openGPUBackend(g *globalFlags) (closingBackend, *gpuDevice, error) {
	tb, nan, err := g.modes()
	if err != nil {
		return nil, nil, err
	}
	dev, err := openGPU()
	if err != nil {
		return nil, nil, err
	}
	b, err := dev.sorter(tb, nan)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return b, dev, nil
}

func sortImage(ctx context.Context, backend closingBackend, kind imagekey.Kind, maxSide int, in, out string) (int, error) {
	img, _, err := imagekey.Load(in)
	if err != nil {
		return 0, err
	}
	img = imagekey.Fit(img, maxSide)

	offsets := imagekey.Offsets(img)
	sorted, err := backend.SortMultiChannel(ctx, imagekey.Channels(img, kind), offsets, 1)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", in, err)
	}
	permuted, err := imagekey.Permute(img, sorted)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", in, err)
	}
	if err := imagekey.Save(out, permuted); err != nil {
		return 0, err
	}
	return len(offsets), nil
}
