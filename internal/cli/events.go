package cli

import (
	"github.com/spf13/cobra"
)

// NewEventsCmd создаёт группу команд для журнала событий.
func NewEventsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the orchestrator event log",
	}

	cmd.AddCommand(
		newEventsListCmd(clientFn, outputFn),
		newEventsShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newEventsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListEventsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			events, err := client.ListEvents(opts)
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "LEVEL", "EVENT", "RUN_ID", "PIPELINE", "FIELDS"}
			rows := make([][]string, len(events))
			for i, e := range events {
				rows[i] = []string{e.Timestamp, e.Level, e.Type, orDash(e.RunID), orDash(e.Pipeline), formatFields(e.Fields)}
			}

			out.Print(headers, rows, events)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "Filter by sequencing run ID")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Filter by event type (e.g. pipeline_failed)")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "Filter by pipeline name")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "Only events newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newEventsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show event details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			e, err := client.GetEvent(args[0])
			if err != nil {
				return err
			}

			out.Details([][2]string{
				{"ID", e.ID},
				{"Timestamp", e.Timestamp},
				{"Level", e.Level},
				{"Event", e.Type},
				{"Run ID", orDash(e.RunID)},
				{"Pipeline", orDash(e.Pipeline)},
				{"Fields", orDash(formatFields(e.Fields))},
			}, e)
			return nil
		},
	}
}

