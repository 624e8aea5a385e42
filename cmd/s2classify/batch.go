package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/forest-guardian/landcover-cli/internal/dataset"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/output"
	"github.com/forest-guardian/landcover-cli/internal/pipeline"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <archive.SAFE>...",
		Short: "Process many .SAFE archives concurrently and write their heuristic land-cover labels",
		Long: `Run the alignment, crop and index chain on every archive given, --workers at
a time. Every archive gets its own <tile>_labels.tif, <tile>_labels.png and
<tile>_pixels.csv under --output-dir. A failing archive is reported and does
not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			var done int
			defer func() {
				a.report(ctx, "batch", err, fmt.Sprintf("Processed %d of %d archives", done, len(args)))
			}()

			names, err := batchNames(args)
			if err != nil {
				return err
			}

			cfgs := make([]pipeline.Config, len(args))
			for i, folder := range args {
				cfgs[i] = pipeline.ConfigFrom(a.cfg)
				cfgs[i].SafeFolder = folder
				cfgs[i].SkipFeatures = true
			}

			results := pipeline.New(raster.NewGDALSource(a.log), a.log, pipeline.WithProgress(os.Stderr)).
				RunBatch(cfgs, a.cfg.Workers, func(i int, _ pipeline.Config, res *pipeline.Result) error {
					return a.writeLabels(names[i], res)
				})

			var failed []error
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("\033[31m✗ %s: %s\033[0m\n", r.SafeFolder, r.Err)
					failed = append(failed, r.Err)
					continue
				}
				done++
				fmt.Printf("\033[32m✓ %s\033[0m\n", r.SafeFolder)
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d archives failed: %w", len(failed), len(args), errors.Join(failed...))
			}
			return nil
		},
	}
}

// batchNames returns the output prefix of each archive. The same archive given
// twice, or two archives sharing a tile name, is a configuration error since
// their outputs would overwrite each other.
func batchNames(folders []string) ([]string, error) {
	names := make([]string, len(folders))
	seen := make(map[string]string, len(folders))
	for i, folder := range folders {
		names[i] = tileName(folder)
		if prev, ok := seen[names[i]]; ok {
			return nil, fmt.Errorf("%w: %s and %s would both write %s outputs", errkind.ErrConfig, prev, folder, names[i])
		}
		seen[names[i]] = folder
	}
	return names, nil
}

func (a *app) writeLabels(name string, res *pipeline.Result) error {
	dir := a.cfg.OutputPath("")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, dir, err)
	}
	grid := res.Stack.Grid

	if err := raster.WriteClassification(fmt.Sprintf("%s/%s_labels.tif", dir, name), res.Labels, grid, a.cfg.Compress); err != nil {
		return err
	}
	if err := output.RenderClassMap(fmt.Sprintf("%s/%s_labels.png", dir, name), res.Labels, grid.Width, grid.Height, classMapScale); err != nil {
		return err
	}
	rows, err := dataset.Build(grid, res.Indices, res.Labels, nil)
	if err != nil {
		return err
	}
	return dataset.Save(fmt.Sprintf("%s/%s_pixels.csv", dir, name), rows)
}
