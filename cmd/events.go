package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List an owner's events",
	Long:  `List the events registered for an owner in the DynamoDB events table (EVENTS_TABLE).`,
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().String("owner", "", "Event owner (required)")
	eventsCmd.Flags().Bool("json", false, "Output as JSON")
	_ = eventsCmd.MarkFlagRequired("owner")
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.registry == nil {
		return errors.New("EVENTS_TABLE environment variable is required")
	}

	list, err := a.registry.List(ctx, mustGetString(cmd, "owner"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(list)
	}

	if len(list) == 0 {
		fmt.Println("No events found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATE\tPHOTOS\tGUESTS")
	fmt.Fprintln(w, "--\t----\t----\t------\t------")
	for i := range list {
		e := &list[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", e.ID, e.Name, e.Date, e.PhotoCount, e.GuestCount)
	}
	w.Flush()
	return nil
}
