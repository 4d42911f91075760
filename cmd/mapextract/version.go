package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the build version, overridable at link time with
// -ldflags "-X main.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mapextract version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mapextract", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
