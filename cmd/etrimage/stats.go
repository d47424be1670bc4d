package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/abdulachik/etrimage/internal/app"
	"github.com/abdulachik/etrimage/internal/config"
	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/spf13/cobra"
)

var statsLatest int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show feedback statistics",
	Long:  `Display rating totals, style usage, mean temperatures and the latest entries from the feedback log.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLatest, "latest", "n", 5, "Number of latest entries to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, _, err := app.OpenFeedbackLog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer log.Close()

	records, err := log.List(ctx)
	if err != nil {
		return fmt.Errorf("list feedback: %w", err)
	}
	stats := feedback.Summarize(records, statsLatest)

	fmt.Println("=== ETR Image Feedback ===")
	fmt.Println()
	switch cfg.FeedbackStore {
	case config.StoreSQLite:
		fmt.Printf("Database: %s\n", cfg.DatabasePath)
	default:
		fmt.Printf("Log: %s\n", cfg.FeedbackCSVPath)
	}
	fmt.Printf("Images: %s\n", cfg.ImageDir)
	fmt.Println()

	fmt.Println("Ratings:")
	fmt.Printf("  Total: %d\n", stats.Total)
	fmt.Printf("  %s: %d\n", feedback.Positive, stats.ByRating[feedback.Positive])
	fmt.Printf("  %s: %d\n", feedback.Negative, stats.ByRating[feedback.Negative])
	if stats.Total > 0 {
		fmt.Printf("  Positive rate: %.0f%%\n", stats.PositiveRate()*100)
	}
	fmt.Println()

	if len(stats.ByStyle) > 0 {
		styles := make([]string, 0, len(stats.ByStyle))
		for style := range stats.ByStyle {
			styles = append(styles, style)
		}
		sort.Strings(styles)

		fmt.Println("  By style:")
		for _, style := range styles {
			fmt.Printf("    %s: %d\n", style, stats.ByStyle[style])
		}
		fmt.Println()

		fmt.Println("Temperatures (mean):")
		fmt.Printf("  Text: %.2f\n", stats.MeanTextTemperature)
		fmt.Printf("  Image: %.2f\n", stats.MeanImageTemperature)
		fmt.Println()
	}

	if len(stats.Latest) > 0 {
		fmt.Println("Latest:")
		for _, rec := range stats.Latest {
			fmt.Printf("  %s  %-6s  %s\n", rec.Timestamp.Format(feedback.TimestampLayout), rec.Rating, rec.ImageFilename)
			if rec.Comments != "" {
				fmt.Printf("      %q\n", rec.Comments)
			}
		}
		fmt.Println()
	}

	return nil
}
