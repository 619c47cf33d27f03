package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tstromberg/pic2pdf/pkg/collection"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [paths...]",
		Short: "Show the page order images would be assembled in",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := load(args)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), c.Snapshot())
			return nil
		},
	}
}

func printList(w io.Writer, snap collection.Snapshot) {
	for i, e := range snap {
		alpha := ""
		if e.HasAlpha {
			alpha = "alpha"
		}
		fmt.Fprintf(w, "%4d  %-32s %5dx%-5d %-5s %-5s %s\n",
			i+1, filepath.Base(e.Path), e.Width, e.Height, e.Format, alpha, e.Created.Format("2006-01-02 15:04:05"))
	}
}
