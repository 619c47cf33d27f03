// pic2pdf assembles an ordered set of images into a PDF, one image per page.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/collection"
	"github.com/tstromberg/pic2pdf/pkg/config"
)

const version = "0.1.0"

var configPath string

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pic2pdf",
		Short: "Assemble images into a paginated PDF",
		Long: `pic2pdf places each image on its own page, scaled to fit and centered,
with transparency flattened onto the page background.

Images given as directories are expanded recursively. The initial order is
by creation time, oldest first.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	gfs := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(gfs)
	cmd.PersistentFlags().AddGoFlagSet(gfs)
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML settings file overriding the built-in defaults")

	cmd.AddCommand(newBuildCmd(), newListCmd(), newPreviewCmd(), newViewCmd())
	return cmd
}

// load reads settings and adds the images under paths to a new collection.
// Unreadable files are reported and skipped.
func load(paths []string) (*config.Config, *collection.Collection, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	files, err := collection.Find(paths...)
	if err != nil {
		return nil, nil, fmt.Errorf("find: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no images found in %v", paths)
	}

	o, err := cfg.CollectionOptions()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Collection.ExifDates {
		d, err := collection.NewExifDater()
		if err != nil {
			klog.Warningf("exif dates unavailable, using modification times: %v", err)
		} else {
			defer d.Close()
			o.Dater = d
		}
	}

	c := collection.New(o)
	ids, failed := c.AddAll(files)
	for _, f := range failed {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", f)
	}
	klog.Infof("loaded %d of %d images", len(ids), len(files))
	return cfg, c, nil
}
