package main

import (
	"fmt"

	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <raster>...",
		Short: "Print size, type, bounds and CRS of rasters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				info, err := raster.Describe(path, a.log)
				if err != nil {
					return err
				}
				fmt.Println(info)
			}
			return nil
		},
	}
}
