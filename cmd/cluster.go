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

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group an event's photos by the people in them",
	Long: `Partition every image of an event into groups showing the same person.
Each group is represented by its first image; images without a detectable
face are listed separately.

Examples:
  event-faces cluster --owner jan@example.com --event wedding
  event-faces cluster --owner jan@example.com --event wedding --threshold 85 --json`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().String("owner", "", "Event owner (required)")
	clusterCmd.Flags().String("event", "", "Event ID (required)")
	clusterCmd.Flags().Float64("threshold", 0, "Similarity 0-100 needed to join a group (default from GROUP_THRESHOLD)")
	clusterCmd.Flags().Bool("json", false, "Output as JSON")
	_ = clusterCmd.MarkFlagRequired("owner")
	_ = clusterCmd.MarkFlagRequired("event")
}

// ClusterOutput is the JSON output of the cluster command.
type ClusterOutput struct {
	Owner     string  `json:"owner"`
	EventID   string  `json:"event_id"`
	Threshold float64 `json:"threshold"`
	facematch.ClusterView
	Duration string `json:"duration"`
}

func runCluster(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(context.Background())
	defer stop()
	jsonOutput := mustGetBool(cmd, "json")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	scope := facematch.Scope{Owner: mustGetString(cmd, "owner"), EventID: mustGetString(cmd, "event")}
	threshold := mustGetFloat64(cmd, "threshold")
	if !cmd.Flags().Changed("threshold") {
		threshold = a.cfg.Matching.GroupThreshold
	}

	if _, err := a.resolveEvent(ctx, scope); err != nil {
		return err
	}
	candidates, err := storage.Candidates(ctx, a.store, scope)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput && len(candidates) > 0 {
		fmt.Printf("Clustering %d images of event %s\n", len(candidates), scope.EventID)
		bar = progressbar.NewOptions(len(candidates),
			progressbar.OptionSetDescription("Grouping faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	start := time.Now()
	partition, err := a.engine.RunClustering(ctx, scope, candidates,
		facematch.WithGroupThreshold(threshold),
		facematch.WithClusterProgress(func(processed, _ int) {
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
	if err != nil {
		return err
	}

	view := partition.View()
	if jsonOutput {
		return outputJSON(ClusterOutput{
			Owner:       scope.Owner,
			EventID:     scope.EventID,
			Threshold:   threshold,
			ClusterView: view,
			Duration:    formatDuration(time.Since(start)),
		})
	}

	printClusterView(view)
	fmt.Printf("\nCompleted in %s\n", formatDuration(time.Since(start)))
	return nil
}

func printClusterView(view facematch.ClusterView) {
	fmt.Printf("Found %d groups, %d images without a face\n\n", len(view.Groups), len(view.NoFaceRefs))
	if len(view.Groups) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tIMAGES\tREPRESENTATIVE")
	fmt.Fprintln(w, "-----\t------\t--------------")
	for _, g := range view.Groups {
		fmt.Fprintf(w, "%s\t%d\t%s\n", g.ID, len(g.MemberRefs), g.Representative)
	}
	w.Flush()
}
