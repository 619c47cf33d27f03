package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/assemble"
	"github.com/tstromberg/pic2pdf/pkg/collection"
)

type buildFlags struct {
	out    string
	order  string
	policy string
	title  string
	watch  bool
}

func newBuildCmd() *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build -o out.pdf [paths...]",
		Short: "Write images to a PDF, one per page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runBuild(cmd.Context(), args, f); err != nil {
				return err
			}
			if !f.watch {
				return nil
			}
			return watch(cmd.Context(), args, func() error {
				return runBuild(cmd.Context(), args, f)
			})
		},
	}

	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output PDF path")
	cmd.Flags().StringVar(&f.order, "order", "", "new order as comma-separated 1-indexed positions, e.g. 3,1,2")
	cmd.Flags().StringVar(&f.policy, "policy", "", "on a bad image: stop or skip (default from config)")
	cmd.Flags().StringVar(&f.title, "title", "", "document title")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "rebuild when the inputs change")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runBuild(ctx context.Context, paths []string, f *buildFlags) error {
	cfg, c, err := load(paths)
	if err != nil {
		return err
	}

	if f.order != "" {
		if err := reorder(c, f.order); err != nil {
			return fmt.Errorf("order: %w", err)
		}
	}

	o, err := cfg.AssembleOptions()
	if err != nil {
		return err
	}
	if f.policy != "" {
		if o.Policy, err = assemble.ParsePolicy(f.policy); err != nil {
			return err
		}
	}
	if f.title != "" {
		o.Title = f.title
	}

	snap := c.Snapshot()
	bar := progressbar.NewOptions(len(snap),
		progressbar.OptionSetDescription("Assembling pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
	o.Observer = assemble.ObserverFunc(func(int, int) {
		_ = bar.Add(1)
	})

	res, err := assemble.Build(ctx, snap, assemble.FileSink{Path: f.out}, o)
	_ = bar.Finish()
	for _, pe := range res.Failed {
		klog.Warningf("left out: %v", pe)
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	klog.Infof("wrote %d pages to %s", res.Pages, f.out)
	return nil
}

// reorder applies a comma-separated list of 1-indexed positions: the entry
// at the first listed position becomes page 1, and so on. Unlisted entries
// follow in their current order.
func reorder(c *collection.Collection, spec string) error {
	snap := c.Snapshot()
	seen := map[int]bool{}

	for target, s := range strings.Split(spec, ",") {
		pos, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("position %q: %w", s, err)
		}
		if pos < 1 || pos > len(snap) {
			return fmt.Errorf("position %d out of range 1-%d", pos, len(snap))
		}
		if seen[pos] {
			return fmt.Errorf("position %d listed twice", pos)
		}
		seen[pos] = true

		if err := c.MoveToIndex(snap[pos-1].ID, target); err != nil {
			return err
		}
	}
	return nil
}
