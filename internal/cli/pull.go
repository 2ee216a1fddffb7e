package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/daemon"
)

func init() {
	pullCmd.Flags().StringVar(&pullQuant, "quant", "", "Quantization type (default: best for this CPU)")
	rootCmd.AddCommand(pullCmd)
}

var pullQuant string

var pullCmd = &cobra.Command{
	Use:   "pull [MODEL_ID]",
	Short: "Download a model from HuggingFace",
	Long:  `Pull model weights to run locally. With no argument, pulls the configured default model.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPull,
}

func runPull(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	modelID := d.Config.Models.Default
	if len(args) > 0 {
		modelID = args[0]
	}

	steps := newStepPrinter()
	steps.Begin(fmt.Sprintf("downloading %s", modelID))
	if !d.Models.Download(cmd.Context(), modelID, pullQuant) {
		steps.Fail()
		return fmt.Errorf("pull %s failed — check logs in %s", modelID, d.Config.Models.LogsDir)
	}
	steps.Done()

	fmt.Println("Done! Run it with 'bitnet run'.")
	return nil
}
