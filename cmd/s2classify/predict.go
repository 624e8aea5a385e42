package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/landcover-cli/internal/labeler"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/spf13/cobra"
)

func newPredictCmd(a *app) *cobra.Command {
	var img imageFlags

	cmd := &cobra.Command{
		Use:   "predict <image.tif>",
		Short: "Classify a stacked image with a saved model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			defer func() { a.report(ctx, "predict", err, fmt.Sprintf("Classified %s", args[0])) }()

			stack, pair, err := img.load(a, args[0])
			if err != nil {
				return err
			}
			labels, err := labeler.FromIndices(pair)
			if err != nil {
				return err
			}

			model, release, err := a.newModel()
			if err != nil {
				return err
			}
			defer release()

			if err := model.Load(ctx, a.modelPath(img.model)); err != nil {
				return err
			}
			predictions, err := model.Predict(ctx, raster.Flatten(stack))
			if err != nil {
				return err
			}

			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			out, err := a.writeOutputs(a.cfg.OutputPath(""), name, stack.Grid, pair, labels, predictions)
			if err != nil {
				return err
			}
			fmt.Printf("\nClassification written to %s\nClass map written to %s\n", out.Classification, out.ClassMap)
			return nil
		},
	}

	img.register(cmd)
	return cmd
}
