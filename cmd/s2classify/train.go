package main

import (
	"fmt"

	"github.com/forest-guardian/landcover-cli/internal/indices"
	"github.com/forest-guardian/landcover-cli/internal/labeler"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/spf13/cobra"
)

type imageFlags struct {
	bandOrder []string
	model     string
}

func (f *imageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.bandOrder, "band-order", nil, "Band code of each image band, in file order (e.g. B02,B03,B04,B08)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model file (default <output-dir>/model.csv)")
}

// load reads a stacked image and its indices.
func (f *imageFlags) load(a *app, path string) (*raster.Stack, *indices.Pair, error) {
	var order []sentinel.Band
	if len(f.bandOrder) > 0 {
		var err error
		if order, err = sentinel.ParseBands(f.bandOrder); err != nil {
			return nil, nil, err
		}
	}
	stack, err := raster.LoadImage(path, order, a.log)
	if err != nil {
		return nil, nil, err
	}
	pair, err := indices.Compute(stack, indices.Options{AllowPositionalFallback: a.cfg.PositionalFallback}, a.log)
	if err != nil {
		return nil, nil, err
	}
	return stack, pair, nil
}

func newTrainCmd(a *app) *cobra.Command {
	var (
		img     imageFlags
		stripes bool
	)

	cmd := &cobra.Command{
		Use:   "train <image.tif>",
		Short: "Train the classifier on a stacked image labelled by the NDVI/NDWI heuristic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stack, pair, err := img.load(a, args[0])
			if err != nil {
				return err
			}

			var labels []uint8
			if stripes {
				labels = labeler.Stripes(stack.Grid.Height, stack.Grid.Width)
			} else if labels, err = labeler.FromIndices(pair); err != nil {
				return err
			}

			model, release, err := a.newModel()
			if err != nil {
				return err
			}
			defer release()

			if err := model.Train(ctx, raster.Flatten(stack), labels); err != nil {
				return err
			}
			path := a.modelPath(img.model)
			if err := model.Save(ctx, path); err != nil {
				return err
			}
			fmt.Printf("\nModel trained on %d pixels, saved to %s\n", len(labels), path)
			return nil
		},
	}

	img.register(cmd)
	cmd.Flags().BoolVar(&stripes, "stripes", false, "Use demo stripe labels instead of the heuristic")
	return cmd
}
