package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/preview"
)

func newPreviewCmd() *cobra.Command {
	var outDir, addr, title string
	cmd := &cobra.Command{
		Use:   "preview -o dir [paths...]",
		Short: "Write an HTML contact sheet of the page order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, err := load(args)
			if err != nil {
				return err
			}
			g, err := cfg.Geometry()
			if err != nil {
				return err
			}
			if title == "" {
				title = cfg.Build.Title
			}

			if err := preview.Render(c.Snapshot(), outDir, preview.Options{Title: title, Geometry: g}); err != nil {
				return err
			}
			if addr == "" {
				return nil
			}
			return serve(cmd.Context(), outDir, addr)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&addr, "listen", "", "serve the preview via HTTP on host:port, e.g. localhost:12800")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// serve serves a static web directory via HTTP until ctx is done.
func serve(ctx context.Context, path string, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(path)))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
