package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/daemon"
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Max entries to show")
	rootCmd.AddCommand(historyCmd)
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent operations from the journal",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if d.Journal == nil {
		fmt.Println("Operation journal unavailable.")
		return nil
	}

	ops, err := d.Journal.ListOperations(historyLimit)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		fmt.Println("No operations recorded yet.")
		return nil
	}

	var data [][]string
	for _, op := range ops {
		detail := op.Detail
		if len(detail) > 40 {
			detail = detail[:37] + "..."
		}
		data = append(data, []string{
			op.Kind,
			op.Model,
			op.Status,
			units.HumanDuration(time.Since(op.CreatedAt)) + " ago",
			detail,
		})
	}

	table := newTable(os.Stdout, []string{"KIND", "MODEL", "STATUS", "WHEN", "DETAIL"})
	table.AppendBulk(data)
	table.Render()
	return nil
}
