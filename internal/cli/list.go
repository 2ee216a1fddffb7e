package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/daemon"
	"github.com/bitnetlabs/bitnet/internal/infra/catalog"
)

func init() {
	listCmd.Flags().BoolVarP(&listAvailable, "available", "a", false, "List downloadable models instead of installed ones")
	rootCmd.AddCommand(listCmd)
}

var listAvailable bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List locally installed models",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if listAvailable {
		printAvailable(d.Models.ListAvailable())
		return nil
	}

	installed := d.Models.ListInstalled()
	if len(installed) == 0 {
		fmt.Println("No models installed. Run 'bitnet pull <model-id>' to get started.")
		fmt.Println()
		printAvailable(d.Models.ListAvailable())
		return nil
	}

	names := make([]string, 0, len(installed))
	for name := range installed {
		names = append(names, name)
	}
	sort.Strings(names)

	var data [][]string
	for _, name := range names {
		m := installed[name]
		data = append(data, []string{
			m.ModelName,
			m.QuantType,
			units.HumanSize(float64(dirSize(m.Path))),
			m.ModelID,
		})
	}

	table := newTable(os.Stdout, []string{"NAME", "QUANT", "SIZE", "MODEL ID"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func printAvailable(entries []catalog.Entry) {
	fmt.Println("Available models:")

	var data [][]string
	for _, e := range entries {
		data = append(data, []string{e.ModelID, e.ModelName, e.Description})
	}

	table := newTable(os.Stdout, []string{"MODEL ID", "NAME", "DESCRIPTION"})
	table.AppendBulk(data)
	table.Render()
}
