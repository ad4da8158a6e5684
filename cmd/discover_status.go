package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/discovery"
)

var discoverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sweep checkpoint progress",
	Long:  "Display the checkpoint file's progress: cells completed, place ids seen, and cafés collected so far.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cp, err := discovery.LoadCheckpoint(cfg.Discovery.CheckpointPath)
		if err != nil {
			return err
		}

		if len(cp.Completed) == 0 && len(cp.Cafes) == 0 {
			zap.L().Info("no sweep in progress", zap.String("checkpoint", cfg.Discovery.CheckpointPath))
			return nil
		}

		formatCheckpoint(os.Stdout, cp)
		return nil
	},
}

func init() { discoverCmd.AddCommand(discoverStatusCmd) }

func formatCheckpoint(out io.Writer, cp *discovery.Checkpoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CELLS DONE\tSEEN\tCAFES\tDETAILS FETCHED")
	_, _ = fmt.Fprintln(w, "----------\t----\t-----\t---------------")

	fetched := 0
	for _, c := range cp.Cafes {
		if c.DetailFetched {
			fetched++
		}
	}

	_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\n",
		len(cp.Completed),
		len(cp.Seen),
		len(cp.Cafes),
		fetched,
	)
	_ = w.Flush()
}
