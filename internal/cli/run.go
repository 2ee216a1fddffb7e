package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/app/chat"
	"github.com/bitnetlabs/bitnet/internal/daemon"
	"github.com/bitnetlabs/bitnet/internal/domain"
)

func init() {
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Prompt for one-shot generation")
	runCmd.Flags().StringVarP(&runSystem, "system", "s", "", "System prompt")
	runGen.register(runCmd)
	rootCmd.AddCommand(runCmd)
}

var (
	runPrompt string
	runSystem string
	runGen    generationFlags
)

var runCmd = &cobra.Command{
	Use:   "run MODEL [PROMPT]",
	Short: "Run a model once, or start an interactive chat",
	Long: `Run one-shot generation when a prompt is given (flag or argument),
otherwise drop into an interactive chat.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	modelName := args[0]

	// Optional inline prompt
	prompt := runPrompt
	if prompt == "" && len(args) > 1 {
		prompt = strings.Join(args[1:], " ")
	}

	d, err := daemon.New()
	if err != nil {
		return fmt.Errorf("initialize daemon: %w", err)
	}
	defer d.Close()

	modelPath, ok := d.Models.ModelPath(modelName)
	if !ok {
		return fmt.Errorf("model %s is not installed — run 'bitnet pull' first", modelName)
	}

	if prompt == "" {
		return chatLoop(cmd, d, modelName, modelPath, runSystem, &runGen)
	}

	if runSystem != "" {
		// A system prompt means chat formatting; print the parsed reply.
		messages := []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: runSystem},
			{Role: domain.RoleUser, Content: prompt},
		}
		out, err := d.Runner.RunOnce(cmd.Context(), modelPath,
			chat.FormatPrompt(messages), runGen.params(d.Config.Inference, true))
		if err != nil {
			return err
		}
		fmt.Println(chat.Reply(out))
		return nil
	}

	// Raw generation: stream process output as it arrives.
	ch, err := d.Runner.RunStream(cmd.Context(), modelPath, prompt,
		runGen.params(d.Config.Inference, false))
	if err != nil {
		return err
	}
	for chunk := range ch {
		if chunk.Err != nil {
			fmt.Println()
			return chunk.Err
		}
		fmt.Print(chunk.Text)
	}
	fmt.Println()
	return nil
}
