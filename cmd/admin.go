package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Maintenance commands for operators who want to run a one-off shrink,
// invalidation or resync without going through the REST API.

var shrinkCmd = &cobra.Command{
	Use:   "shrink",
	Short: "Evict entries until the cache fits under the size limit",
	Run:   runShrink,
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <fingerprint>",
	Short: "Remove a cache entry, optionally cascading to its dependents",
	Args:  cobra.ExactArgs(1),
	Run:   runInvalidate,
}

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Rebuild the execution state tracker from the metadata store",
	Run:   runResync,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache occupancy and configuration",
	Run:   runStats,
}

func init() {
	shrinkCmd.Flags().Int64("target-bytes", 0, "shrink until total size is at or below this target (0 = configured limit)")
	invalidateCmd.Flags().Bool("cascade", false, "also remove every transitive dependent")

	rootCmd.AddCommand(shrinkCmd)
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(statsCmd)
}

func printReport(report any) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logrus.Fatalf("failed to render report: %v", err)
	}
	fmt.Println(string(out))
}

func runShrink(cmd *cobra.Command, _ []string) {
	target, _ := cmd.Flags().GetInt64("target-bytes")

	report, err := cacheUsecase.ShrinkBelowSize(context.Background(), target)
	if err != nil {
		logrus.Fatalf("shrink failed: %v", err)
	}
	printReport(report)
}

func runInvalidate(cmd *cobra.Command, args []string) {
	cascade, _ := cmd.Flags().GetBool("cascade")

	report, err := cacheUsecase.Invalidate(context.Background(), args[0], cascade)
	if err != nil {
		logrus.Fatalf("invalidate failed: %v", err)
	}
	printReport(report)
}

func runResync(_ *cobra.Command, _ []string) {
	report, err := cacheUsecase.Resync(context.Background())
	if err != nil {
		logrus.Fatalf("resync failed: %v", err)
	}
	printReport(report)
}

func runStats(_ *cobra.Command, _ []string) {
	stats, err := cacheUsecase.Stats(context.Background())
	if err != nil {
		logrus.Fatalf("stats failed: %v", err)
	}
	printReport(stats)
}
