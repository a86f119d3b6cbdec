package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/fixture"
	"github.com/gogpu/pixsort/imagekey"
)

type captureFlags struct {
	channels string
	output   string
	maxSide  int
}

func newCaptureCommand(g *globalFlags) *cobra.Command {
	f := &captureFlags{}
	cmd := &cobra.Command{
		Use:   "capture [flags] image",
		Short: "Write a fixture with the CPU-sorted output of an image's channels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, g, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.channels, "channels", "r,g,b", "comma-separated channel keys")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "fixture path (default <image>.pxsf)")
	cmd.Flags().IntVar(&f.maxSide, "max-side", 256, "downscale so no side exceeds this many pixels (0 = keep size)")
	return cmd
}

func runCapture(cmd *cobra.Command, g *globalFlags, f *captureFlags, in string) error {
	kinds, err := imagekey.ParseKinds(f.channels)
	if err != nil {
		return err
	}
	opts, err := g.sorterOptions()
	if err != nil {
		return err
	}
	s := pixsort.New(opts...)
	defer s.Close()

	img, _, err := imagekey.Load(in)
	if err != nil {
		return err
	}
	img = imagekey.Fit(img, f.maxSide)

	c := &fixture.Case{
		Channels: imagekey.Channels(img, kinds...),
		Offsets:  imagekey.Offsets(img),
		TieBreak: s.TieBreak(),
		NaN:      s.NaNPolicy(),
	}
	c.Expected, err = s.SortMultiChannel(c.Channels, c.Offsets, c.ChannelCount())
	if err != nil {
		return err
	}

	out := f.output
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".pxsf"
	}
	if err := fixture.Save(out, c); err != nil {
		return err
	}
	printer.Fprintf(cmd.OutOrStdout(), "%s: %d channels x %d pixels -> %s\n", in, c.ChannelCount(), c.Len(), out)
	return nil
}
