package cli

import (
	"bufio"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bitnetlabs/bitnet/internal/daemon"
	"github.com/bitnetlabs/bitnet/internal/domain"
)

// newLineScanner creates a line scanner from a reader.
func newLineScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}

// newTable creates a borderless left-aligned table in the docker/ollama CLI
// style.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// dirSize walks dir and sums regular file sizes. Unreadable entries count
// as zero.
func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// generationFlags are the sampling knobs shared by run and chat. A zero
// value defers to the [inference] section of the config file.
type generationFlags struct {
	nPredict    int
	threads     int
	ctxSize     int
	temperature float64
}

func (f *generationFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.nPredict, "n-predict", "n", 0, "Max tokens to generate (default from config)")
	cmd.Flags().IntVarP(&f.threads, "threads", "t", 0, "CPU threads (default from config)")
	cmd.Flags().IntVarP(&f.ctxSize, "ctx-size", "c", 0, "Context window size (default from config)")
	cmd.Flags().Float64Var(&f.temperature, "temp", 0, "Sampling temperature (default from config)")
}

// params folds config defaults and explicit flags into generation settings.
func (f *generationFlags) params(cfg daemon.InferenceConfig, conversation bool) domain.GenerationParams {
	p := cfg.Params()
	if f.nPredict > 0 {
		p.NPredict = f.nPredict
	}
	if f.threads > 0 {
		p.Threads = f.threads
	}
	if f.ctxSize > 0 {
		p.CtxSize = f.ctxSize
	}
	if f.temperature > 0 {
		p.Temperature = f.temperature
	}
	p.Conversation = conversation
	return p
}
