package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/app/chat"
	"github.com/bitnetlabs/bitnet/internal/daemon"
	"github.com/bitnetlabs/bitnet/internal/domain"
)

func init() {
	chatCmd.Flags().StringVarP(&chatSystem, "system", "s", "", "System prompt")
	chatGen.register(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

var (
	chatSystem string
	chatGen    generationFlags
)

var chatCmd = &cobra.Command{
	Use:   "chat MODEL",
	Short: "Start an interactive chat with an installed model",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	modelName := args[0]

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	modelPath, ok := d.Models.ModelPath(modelName)
	if !ok {
		return fmt.Errorf("model %s is not installed — run 'bitnet pull' first", modelName)
	}

	return chatLoop(cmd, d, modelName, modelPath, chatSystem, &chatGen)
}

// chatLoop is the interactive REPL shared by chat and prompt-less run.
// History accumulates across turns and is re-flattened for every request.
func chatLoop(cmd *cobra.Command, d *daemon.Daemon, modelName, modelPath, system string, gen *generationFlags) error {
	fmt.Printf("Chatting with %s (type 'exit' to quit)\n", modelName)

	var history []domain.ChatMessage
	if system != "" {
		history = append(history, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	}

	params := gen.params(d.Config.Inference, true)

	scanner := newLineScanner(os.Stdin)
	for {
		fmt.Print("User: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		if input == "exit" {
			fmt.Println("Goodbye!")
			return nil
		}
		if input == "" {
			continue
		}

		history = append(history, domain.ChatMessage{Role: domain.RoleUser, Content: input})
		out, err := d.Runner.RunOnce(cmd.Context(), modelPath, chat.FormatPrompt(history), params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			history = history[:len(history)-1] // failed turn stays out of history
			continue
		}

		reply := chat.Reply(out)
		fmt.Printf("Assistant: %s\n\n", reply)
		history = append(history, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	}

	return scanner.Err()
}
