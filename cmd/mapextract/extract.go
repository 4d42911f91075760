package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LdDl/mapextract/internal/logger"
	"github.com/LdDl/mapextract/internal/pipeline"
	"github.com/LdDl/mapextract/internal/profile"
	"github.com/LdDl/mapextract/internal/source"
)

var extractCmd = &cobra.Command{
	Use:   "extract <input.osm.pbf> <output-prefix>",
	Short: "Extract a routable dataset from an OSM dump",
	Long: `Read an OSM PBF or XML dump, classify nodes/ways/turn restrictions
through a profile, and write the routable dataset under output-prefix
(output-prefix.nbg_nodes, .cnbg, .ebg, .ramIndex, ...).`,
	Args: cobra.ExactArgs(2),
	Run:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&cfg.ProfilePath, "profile-path", "", "Path to a Lua extraction profile (default: built-in static highway profile)")
	extractCmd.Flags().IntVar(&cfg.SmallComponentSize, "small-component-size", cfg.SmallComponentSize, "Strongly-connected components smaller than this are flagged tiny")
	extractCmd.Flags().BoolVar(&cfg.UseMetadata, "use-metadata", false, "Copy OSM version/timestamp metadata onto parsed nodes and ways")
	extractCmd.Flags().BoolVar(&cfg.UseLocationsCache, "use-locations-cache", true, "Cache node locations during Pass B for location-dependent profiles")
	extractCmd.Flags().BoolVar(&cfg.ParseConditionals, "parse-conditionals", false, "Parse conditional restriction tags (restriction:conditional)")
	extractCmd.Flags().IntVar(&cfg.SpatialLeafSize, "spatial-leaf-size", cfg.SpatialLeafSize, "Segments per R-tree leaf page")
	extractCmd.Flags().IntVar(&cfg.SpatialFanout, "spatial-fanout", cfg.SpatialFanout, "R-tree branching factor")
}

func loadAdapter(path string) (profile.Adapter, func(), error) {
	if path == "" {
		return profile.NewStaticAdapter(), func() {}, nil
	}
	a, err := profile.NewLuaAdapter(path)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

func runExtract(cmd *cobra.Command, args []string) {
	log := logger.Get()
	cfg.InputPath = args[0]
	cfg.OutputPrefix = args[1]

	adapter, closeAdapter, err := loadAdapter(cfg.ProfilePath)
	if err != nil {
		exitWithError("failed to load profile", err)
	}
	defer closeAdapter()

	cfg.ClassNames = classIndex(adapter.ClassNames())
	cfg.ExcludableClasses = adapter.ExcludableClasses()
	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	src, err := source.Open(cfg.InputPath)
	if err != nil {
		exitWithError("failed to open source file", err)
	}

	log.Info("starting extraction",
		zap.String("input", cfg.InputPath),
		zap.String("output_prefix", cfg.OutputPrefix),
		zap.Int("threads", cfg.ResolvedThreads()),
		zap.String("profile", profileLabel(cfg.ProfilePath)),
	)

	start := time.Now()
	result, err := pipeline.Run(context.Background(), cfg, src, adapter)
	if err != nil {
		exitWithError("extraction failed", err)
	}
	elapsed := time.Since(start)

	log.Info("extraction complete",
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
		zap.Int("nodes", result.NodeGraph.NumNodes()),
		zap.Int("edge_based_nodes", len(result.EdgeGraph.Nodes)),
		zap.Int("restrictions", len(result.Restrictions)),
		zap.Int("dropped_ways", result.AggregateStats.DroppedWays),
	)
}

// classIndex assigns each class name a bit index in declaration order,
// matching how a Lua profile's classNames() list is positional.
func classIndex(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}

func profileLabel(path string) string {
	if path == "" {
		return "static-default"
	}
	return path
}
