package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/isoview/internal/adapters/geocoding"
	"github.com/samirrijal/isoview/internal/adapters/traveltime"
	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/usecases"
	"github.com/samirrijal/isoview/internal/pkg/config"
	"github.com/samirrijal/isoview/internal/pkg/geospatial"
	"github.com/samirrijal/isoview/internal/pkg/logging"
)

var (
	endpoint string
	asJSON   bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "isoctl",
	Short: "One-shot isochrone and place lookups",
	Long:  `Queries the configured travel-time and geocoding APIs the same way the isoview service does.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Setup(level, "text")
	},
}

var isochroneCmd = &cobra.Command{
	Use:   "isochrone",
	Short: "Fetch isochrones for an origin, time and cutoffs",
	RunE:  runIsochrone,
}

var placesCmd = &cobra.Command{
	Use:   "places <text>",
	Short: "Search places by free text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlaces,
}

var (
	lat, lng   float64
	departure  string
	cutoffText string
	probe      string
	dryRun     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "API endpoint (defaults to configuration)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print the raw JSON result")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	isochroneCmd.Flags().Float64Var(&lat, "lat", 0, "Origin latitude (defaults to the configured map center)")
	isochroneCmd.Flags().Float64Var(&lng, "lng", 0, "Origin longitude (defaults to the configured map center)")
	isochroneCmd.Flags().StringVarP(&departure, "time", "t", "", "Departure time, e.g. 2024-05-06T08:30 (default now)")
	isochroneCmd.Flags().StringVarP(&cutoffText, "cutoffs", "c", "", "Comma-separated cutoffs (defaults to configuration)")
	isochroneCmd.Flags().StringVar(&probe, "probe", "", "Report the smallest cutoff reaching lat,lng")
	isochroneCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the request URL without sending it")

	rootCmd.AddCommand(isochroneCmd, placesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIsochrone(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("isoctl")
	if err != nil {
		return err
	}
	if endpoint == "" {
		endpoint = cfg.Isochrone.Endpoint
	}

	origin := domain.Coordinate{Lng: cfg.Map.CenterLng, Lat: cfg.Map.CenterLat}
	if cmd.Flags().Changed("lat") {
		origin.Lat = lat
	}
	if cmd.Flags().Changed("lng") {
		origin.Lng = lng
	}
	if !origin.Valid() {
		return fmt.Errorf("invalid origin %s", origin.LatLng())
	}

	at := time.Now()
	if departure != "" {
		t, ok := usecases.ParseTime(departure)
		if !ok {
			return fmt.Errorf("invalid time %q", departure)
		}
		at = t
	}
	if cutoffText == "" {
		cutoffText = cfg.Query.DefaultCutoffs
	}

	q := domain.IsochroneQuery{Location: origin, Time: at, Cutoffs: usecases.ParseCutoffs(cutoffText)}
	client := traveltime.NewClient(endpoint, cfg.Isochrone.TimeoutDuration())

	if dryRun {
		u, err := client.BuildURL(q)
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	}

	fc, err := client.FetchIsochrones(cmd.Context(), q)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(fc)
	}

	fmt.Printf("origin %s at %s, %d isochrones\n", origin.LatLng(), q.FormattedTime(), len(fc.Features))
	for i, f := range fc.Features {
		t, ok := f.Time()
		if !ok {
			fmt.Printf("  #%d %s (no time)\n", i, f.Geometry.Type)
			continue
		}
		fmt.Printf("  #%d %s time=%.0fs (%s)\n", i, f.Geometry.Type, t, time.Duration(t)*time.Second)
	}

	if probe != "" {
		p, err := parseLatLng(probe)
		if err != nil {
			return err
		}
		idx, err := geospatial.NewReachIndex(fc)
		if err != nil {
			return err
		}
		dist := geospatial.Distance(origin, p)
		if t, ok := idx.Lookup(p); ok {
			fmt.Printf("%s reachable within %.0fs (%.0f m away)\n", p.LatLng(), t, dist)
		} else {
			fmt.Printf("%s not reachable within the cutoffs (%.0f m away)\n", p.LatLng(), dist)
		}
	}
	return nil
}

func runPlaces(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("isoctl")
	if err != nil {
		return err
	}
	if endpoint == "" {
		endpoint = cfg.Geocoder.Endpoint
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Geocoder.TimeoutDuration())
	defer cancel()

	places, err := geocoding.NewClient(endpoint, cfg.Geocoder.TimeoutDuration()).SearchPlaces(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(places)
	}
	if len(places) == 0 {
		fmt.Println("no places found")
		return nil
	}
	for _, p := range places {
		fmt.Printf("%-40s %s  (%s)\n", p.Name, p.Location.LatLng(), p.ID)
	}
	return nil
}

// parseLatLng reads "lat,lng".
func parseLatLng(raw string) (domain.Coordinate, error) {
	var c domain.Coordinate
	if _, err := fmt.Sscanf(strings.ReplaceAll(raw, " ", ""), "%f,%f", &c.Lat, &c.Lng); err != nil {
		return c, fmt.Errorf("invalid coordinate %q, want lat,lng: %w", raw, err)
	}
	if !c.Valid() {
		return c, fmt.Errorf("coordinate out of range: %s", raw)
	}
	return c, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
