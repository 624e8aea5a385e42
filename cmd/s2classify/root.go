package main

import (
	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/classifier"
	"github.com/forest-guardian/landcover-cli/internal/logger"
	"github.com/forest-guardian/landcover-cli/internal/notification"
	"github.com/forest-guardian/landcover-cli/internal/properties"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v        *viper.Viper
	cfgFile  string
	noBanner bool

	log    *logrus.Logger
	cfg    *properties.Config
	notify *notification.Discord
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "s2classify",
		Short:         "Align Sentinel-2 bands, derive NDVI/NDWI and classify land cover",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !a.noBanner {
				printBanner()
			}
			godal.RegisterAll()

			a.log = logger.New()
			cfg, err := properties.Load(a.v, a.cfgFile, !cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.notify = notification.NewDiscord(a.log)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "config.json", "JSON config file")
	flags.BoolVar(&a.noBanner, "no-banner", false, "Do not print the banner")
	flags.String("safe-folder", "", "Sentinel-2 L2A .SAFE folder")
	flags.String("geojson", "", "GeoJSON polygon to crop to")
	flags.IntP("resolution", "r", 10, "Target resolution in metres: 10, 20 or 60")
	flags.StringSliceP("bands", "b", nil, "Band codes to stack, or all")
	flags.String("variant", "resample", "resample: warp every band to the target grid; native: keep only bands captured at it")
	flags.Bool("positional-fallback", false, "Use band positions 1,2,3 as green, red, NIR when names are missing")
	flags.String("scratch", "memory", "Where to stage rasters while cropping: memory or disk")
	flags.StringP("output-dir", "o", "output", "Directory for results")
	flags.String("compress", "LZW", "GeoTIFF compression")
	flags.String("classifier", properties.ClassifierCentroid, "Model backend: centroid or grpc")
	flags.String("classifier-addr", "localhost:50051", "Address of the gRPC model server")
	flags.Duration("classifier-timeout", classifier.DefaultTimeout, "Timeout of each model call")
	flags.IntP("workers", "n", 2, "Archives processed concurrently by batch")

	for key, flag := range map[string]string{
		"safe_folder":         "safe-folder",
		"geojson_path":        "geojson",
		"target_resolution":   "resolution",
		"selected_bands":      "bands",
		"variant":             "variant",
		"positional_fallback": "positional-fallback",
		"scratch":             "scratch",
		"output_dir":          "output-dir",
		"compress":            "compress",
		"classifier":          "classifier",
		"classifier_addr":     "classifier-addr",
		"classifier_timeout":  "classifier-timeout",
		"workers":             "workers",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newProcessCmd(a),
		newTrainCmd(a),
		newPredictCmd(a),
		newInfoCmd(a),
		newBatchCmd(a),
	)
	return root
}
