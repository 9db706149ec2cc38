package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fieldfusion/clock"
	"fieldfusion/metrics"
	"fieldfusion/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func analyzeCmd() *cobra.Command {
	var (
		lat, lon  float64
		radius    int
		days      int
		notes     string
		imagePath string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis and print the JSON response",
		Example: `  fieldfusion analyze --lat 18.52 --lon 73.86
  fieldfusion analyze --lat 18.52 --lon 73.86 --radius 500 --days 14 --image leaf.jpg`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			req := models.AnalysisRequest{
				Lat:                 lat,
				Lon:                 lon,
				AOIRadiusM:          radius,
				IncludeForecastDays: days,
				Notes:               notes,
			}

			var image io.Reader
			if imagePath != "" {
				f, err := os.Open(imagePath)
				if err != nil {
					return fmt.Errorf("open image: %w", err)
				}
				defer f.Close()
				image = f
			}

			an := newAnalyzer(cfg, clock.RealClock{}, metrics.New(), slog.Default())
			res, err := an.Analyze(cmd.Context(), req, image)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Response)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	cmd.Flags().IntVar(&radius, "radius", models.DefaultAOIRadiusM, "area of interest radius in meters")
	cmd.Flags().IntVar(&days, "days", models.DefaultWindowDays, "trailing weather window in days")
	cmd.Flags().StringVar(&notes, "notes", "", "free text note")
	cmd.Flags().StringVar(&imagePath, "image", "", "optional field photo")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}
