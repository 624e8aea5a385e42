package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/pipeline"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/spf13/cobra"
)

func newProcessCmd(a *app) *cobra.Command {
	var (
		modelOut  string
		saveStack bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the full chain on one .SAFE archive: align, crop, indices, train, predict",
		Long: `Stack the bands of one Sentinel-2 L2A archive at the target resolution,
optionally crop them to a GeoJSON polygon, compute NDVI and NDWI, label every
pixel with the water/vegetation/urban heuristic, train the classifier on those
labels and write its predictions.

Outputs, under --output-dir:
  <tile>_classification.tif   predicted classes, georeferenced like the stack
  <tile>_classification.png   coloured class map
  <tile>_pixels.csv           per-pixel coordinates, indices, labels, predictions
  <tile>_pixels.geojson       the same rows as points`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			defer func() { a.report(ctx, "process", err, fmt.Sprintf("Processed %s", a.cfg.SafeFolder)) }()

			if a.cfg.SafeFolder == "" {
				return fmt.Errorf("%w: --safe-folder is required", errkind.ErrConfig)
			}

			res, err := pipeline.New(raster.NewGDALSource(a.log), a.log, pipeline.WithProgress(os.Stderr)).
				Run(pipeline.ConfigFrom(a.cfg))
			if err != nil {
				return err
			}

			name := tileName(a.cfg.SafeFolder)
			if saveStack {
				path := a.cfg.OutputPath(name + "_stack.tif")
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, filepath.Dir(path), err)
				}
				if err := raster.WriteStack(path, res.Stack, a.cfg.Compress); err != nil {
					return err
				}
			}

			model, release, err := a.newModel()
			if err != nil {
				return err
			}
			defer release()

			if err := model.Train(ctx, res.Features, res.Labels); err != nil {
				return err
			}
			if err := model.Save(ctx, a.modelPath(modelOut)); err != nil {
				return err
			}
			predictions, err := model.Predict(ctx, res.Features)
			if err != nil {
				return err
			}

			out, err := a.writeOutputs(a.cfg.OutputPath(""), name, res.Stack.Grid, res.Indices, res.Labels, predictions)
			if err != nil {
				return err
			}
			fmt.Printf("\nClassification written to %s\nClass map written to %s\n", out.Classification, out.ClassMap)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelOut, "model", "", "Where to save the trained model (default <output-dir>/model.csv)")
	cmd.Flags().BoolVar(&saveStack, "save-stack", false, "Also write the aligned band stack as a GeoTIFF")
	return cmd
}

// tileName turns .../S2A_MSIL2A_..._T32TQM_....SAFE into its base name without
// the extension.
func tileName(safeFolder string) string {
	return strings.TrimSuffix(filepath.Base(filepath.Clean(safeFolder)), ".SAFE")
}
