package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewStatusCmd создаёт команду status.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show orchestrator loop status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.Status()
			if err != nil {
				return err
			}

			out.Details([][2]string{
				{"State", s.State},
				{"Phase", s.Phase},
				{"Config", orDash(s.ConfigPath)},
				{"Pipelines", orDash(strings.Join(s.Pipelines, ", "))},
				{"Cycles", strconv.FormatInt(s.Cycles, 10)},
				{"Runs processed", strconv.FormatInt(s.RunsProcessed, 10)},
				{"Active runs", orDash(strings.Join(s.ActiveRuns, ", "))},
				{"Last scan", orDash(s.LastScanStartedAt)},
				{"Last scan duration", fmt.Sprintf("%.1fs", s.LastScanDurationSeconds)},
				{"Next scan", orDash(s.NextScanAt)},
			}, s)
			return nil
		},
	}
}
