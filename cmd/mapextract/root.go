// Package main wires the cobra command tree of SPEC_FULL.md's
// "CLI / config" component A1, grounded directly on the pack's
// wegman-software-osm2pgsql-go/cmd/root.go (persistent flags binding
// onto a shared config, PersistentPreRun initializing the logger).
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LdDl/mapextract/internal/config"
	"github.com/LdDl/mapextract/internal/logger"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "mapextract",
	Short: "Extract a routable map dataset from an OSM dump",
	Long: `mapextract reads an .osm.pbf or .osm.xml dump, applies a profile
(Lua script or the built-in static highway profile), and writes a
routable dataset: a node-based graph, an edge-based (turn-aware) graph,
a name table, a turn restriction list, and an R-tree spatial index.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(cfg.Debug)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().IntVarP(&cfg.RequestedThreads, "threads", "j", cfg.RequestedThreads, "Number of worker goroutines (0 = auto, all available cores)")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	log.Error(msg, zap.Error(err))
	os.Exit(1)
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
