package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/event-faces/internal/facematch"
	"github.com/kozaktomas/event-faces/internal/storage"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find the event photos a selfie appears in",
	Long: `Compare a selfie against every image of an event and list the photos
whose faces match, best match first.

The selfie is given either as a full object key (--source) or as a file name
under the owner's selfie folder (--selfie), e.g. user/jan_example_com/selfies/me.jpg.

Examples:
  event-faces match --owner jan@example.com --event wedding --selfie me.jpg
  event-faces match --owner jan@example.com --event wedding --source guests/me.jpg --threshold 95 --json`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("owner", "", "Event owner (required)")
	matchCmd.Flags().String("event", "", "Event ID (required)")
	matchCmd.Flags().String("source", "", "Object key of the source image")
	matchCmd.Flags().String("selfie", "", "Selfie file name under the owner's selfie folder")
	matchCmd.Flags().String("role", "", "Role segment of the selfie key (default \"user\")")
	matchCmd.Flags().Float64("threshold", 0, "Minimum similarity 0-100 (default from MATCH_THRESHOLD)")
	matchCmd.Flags().Int("batch-size", 0, "Concurrent comparisons per batch (default from BATCH_SIZE)")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
	_ = matchCmd.MarkFlagRequired("owner")
	_ = matchCmd.MarkFlagRequired("event")
	matchCmd.MarkFlagsMutuallyExclusive("source", "selfie")
	matchCmd.MarkFlagsOneRequired("source", "selfie")
}

// MatchOutput is the JSON output of the match command.
type MatchOutput struct {
	Owner      string                  `json:"owner"`
	EventID    string                  `json:"event_id"`
	Source     string                  `json:"source"`
	Threshold  float64                 `json:"threshold"`
	Matches    []facematch.MatchRecord `json:"matches"`
	RankedURLs []string                `json:"ranked_urls"`
	Summary    string                  `json:"summary"`
	Processed  int                     `json:"processed"`
	NoFace     int                     `json:"no_face"`
	Failed     int                     `json:"failed"`
	Duration   string                  `json:"duration"`
}

// resolveSourceKey returns the source key given either directly or as a selfie name.
func resolveSourceKey(scope facematch.Scope, source, selfie, role string) string {
	if source != "" {
		return source
	}
	return scope.SelfieKey(role, selfie)
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(context.Background())
	defer stop()
	jsonOutput := mustGetBool(cmd, "json")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	scope := facematch.Scope{Owner: mustGetString(cmd, "owner"), EventID: mustGetString(cmd, "event")}
	sourceKey := resolveSourceKey(scope, mustGetString(cmd, "source"), mustGetString(cmd, "selfie"), mustGetString(cmd, "role"))

	threshold := mustGetFloat64(cmd, "threshold")
	if !cmd.Flags().Changed("threshold") {
		threshold = a.cfg.Matching.MatchThreshold
	}
	batchSize := mustGetInt(cmd, "batch-size")
	if !cmd.Flags().Changed("batch-size") {
		batchSize = a.cfg.Matching.BatchSize
	}

	if _, err := a.resolveEvent(ctx, scope); err != nil {
		return err
	}
	candidates, err := storage.Candidates(ctx, a.store, scope)
	if err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Printf("Matching %s against %d images of event %s\n", sourceKey, len(candidates), scope.EventID)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput && len(candidates) > 0 {
		bar = progressbar.NewOptions(len(candidates),
			progressbar.OptionSetDescription("Comparing faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	start := time.Now()
	report, err := a.engine.RunMatch(ctx, scope, sourceKey, candidates,
		facematch.WithThreshold(threshold),
		facematch.WithBatchSize(batchSize),
		facematch.WithProgress(func(processed, _ int) {
			if bar != nil {
				_ = bar.Set(processed)
			}
		}))
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if ctx.Err() != nil {
		return errors.New("interrupted")
	}

	// No match is a regular outcome for a guest, not a command failure.
	if err != nil && !errors.Is(err, facematch.ErrNoMatchFound) {
		return err
	}

	if jsonOutput {
		return outputJSON(MatchOutput{
			Owner:      scope.Owner,
			EventID:    scope.EventID,
			Source:     sourceKey,
			Threshold:  threshold,
			Matches:    report.Matches,
			RankedURLs: report.RankedURLs,
			Summary:    report.Summary,
			Processed:  report.Processed,
			NoFace:     report.NoFace,
			Failed:     report.Failed,
			Duration:   formatDuration(time.Since(start)),
		})
	}

	printMatchReport(report)
	fmt.Printf("\nCompleted in %s\n", formatDuration(time.Since(start)))
	return nil
}

func printMatchReport(report *facematch.MatchReport) {
	fmt.Println(report.Summary)
	if report.NoFace > 0 || report.Failed > 0 {
		fmt.Printf("Skipped: %d without a face, %d failed\n", report.NoFace, report.Failed)
	}
	if len(report.Matches) == 0 {
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSIMILARITY\tURL")
	fmt.Fprintln(w, "-\t----------\t---")
	for i, m := range report.Matches {
		fmt.Fprintf(w, "%d\t%.2f%%\t%s\n", i+1, m.Similarity, m.URL)
	}
	w.Flush()
}
