package main

import (
	"context"
	"fmt"
	"os"

	"github.com/forest-guardian/landcover-cli/internal/classifier"
	"github.com/forest-guardian/landcover-cli/internal/dataset"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/indices"
	"github.com/forest-guardian/landcover-cli/internal/output"
	"github.com/forest-guardian/landcover-cli/internal/properties"
	"github.com/forest-guardian/landcover-cli/internal/raster"
)

const classMapScale = 4

// newModel returns the configured classifier and a function releasing it.
func (a *app) newModel() (classifier.Model, func(), error) {
	if a.cfg.Classifier == properties.ClassifierGRPC {
		client, err := classifier.NewGRPCClient(a.cfg.ClassifierAddr, a.cfg.ClassifierTimeout, a.log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close classifier connection")
			}
		}, nil
	}
	return classifier.NewCentroid(a.log), func() {}, nil
}

func (a *app) modelPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.cfg.OutputPath("model.csv")
}

// outputs are the files written for one classified raster.
type outputs struct {
	Classification string
	ClassMap       string
	PixelsCSV      string
	PixelsGeoJSON  string
}

// writeOutputs writes the predicted classes and the per-pixel dataset under
// dir, prefixed with name.
func (a *app) writeOutputs(dir, name string, grid raster.Grid, pair *indices.Pair, labels, predictions []uint8) (*outputs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", errkind.ErrIO, dir, err)
	}
	out := &outputs{
		Classification: fmt.Sprintf("%s/%s_classification.tif", dir, name),
		ClassMap:       fmt.Sprintf("%s/%s_classification.png", dir, name),
		PixelsCSV:      fmt.Sprintf("%s/%s_pixels.csv", dir, name),
		PixelsGeoJSON:  fmt.Sprintf("%s/%s_pixels.geojson", dir, name),
	}

	if err := raster.WriteClassification(out.Classification, predictions, grid, a.cfg.Compress); err != nil {
		return nil, err
	}
	if err := output.RenderClassMap(out.ClassMap, predictions, grid.Width, grid.Height, classMapScale); err != nil {
		return nil, err
	}

	rows, err := dataset.Build(grid, pair, labels, predictions)
	if err != nil {
		return nil, err
	}
	if err := dataset.Save(out.PixelsCSV, rows); err != nil {
		return nil, err
	}
	if err := output.WriteGeoJSON(out.PixelsGeoJSON, rows); err != nil {
		return nil, err
	}

	a.log.WithField("accuracy", fmt.Sprintf("%.3f", dataset.Accuracy(rows))).Info("agreement with heuristic labels")
	return out, nil
}

// report posts the outcome of a command. Notification failures are only logged.
func (a *app) report(ctx context.Context, command string, err error, success string) {
	var sendErr error
	if err != nil {
		sendErr = a.notify.Error(ctx, fmt.Sprintf("s2classify %s: %s", command, err))
	} else {
		sendErr = a.notify.Success(ctx, fmt.Sprintf("s2classify %s\n\n%s", command, success))
	}
	if sendErr != nil {
		a.log.WithError(sendErr).Warn("failed to send notification")
	}
}
