package cli

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/daemon"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:     "info MODEL",
	Aliases: []string{"show"},
	Short:   "Show detailed information about an installed model",
	Args:    cobra.ExactArgs(1),
	RunE:    runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	modelName := args[0]

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	rec, ok := d.Models.ModelInfo(modelName)
	if !ok {
		return fmt.Errorf("model %s is not installed", modelName)
	}

	fmt.Printf("Name:         %s\n", rec.ModelName)
	fmt.Printf("Model ID:     %s\n", rec.ModelID)
	fmt.Printf("Quantization: %s\n", rec.QuantType)
	fmt.Printf("Size:         %s\n", units.HumanSize(float64(dirSize(rec.Path))))
	fmt.Printf("Path:         %s\n", rec.Path)
	fmt.Printf("Weights:      %s\n", rec.GGUFPath)
	fmt.Printf("Description:  %s\n", rec.Description)

	return nil
}
