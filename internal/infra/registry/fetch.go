package registry

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/bitnetlabs/bitnet/internal/domain"
)

// DefaultFetchCommand is the stock artifact download tool.
const DefaultFetchCommand = "huggingface-cli"

// ExecFetcher implements domain.Fetcher by shelling out to the download
// tool: `huggingface-cli download <model_id> --local-dir <dir>`. Combined
// stdout+stderr goes to the operation's log file; the exit status is the
// only success signal.
type ExecFetcher struct {
	Command string // tool name or path; DefaultFetchCommand when empty
}

func (f ExecFetcher) Fetch(ctx context.Context, modelID, destDir, logPath string) error {
	command := f.Command
	if command == "" {
		command = DefaultFetchCommand
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create download log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, command, "download", modelID, "--local-dir", destDir)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s download %s: %w — check details in %s", command, modelID, err, logPath)
	}
	return nil
}

var _ domain.Fetcher = ExecFetcher{}
