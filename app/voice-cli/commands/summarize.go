package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zenbanez/docuvoice-ai/internal/providers/llm"
)

var summaryOut string

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file.pdf>",
	Short: "Summarize a PDF",
	Long: `Send a PDF to the text model and print a Markdown summary.

The summary can be saved with -o and passed to 'talk --summary-file' so a voice
session starts grounded without summarizing again.

Examples:
  voice-cli summarize report.pdf
  voice-cli summarize report.pdf -o report.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := summarizeFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if summaryOut != "" {
			if err := saveToFile(summaryOut, []byte(summary+"\n")); err != nil {
				return err
			}
		}

		st := newStyles(os.Stdout)
		fmt.Fprintln(os.Stdout, st.Title.Render(filepath.Base(args[0])))
		fmt.Fprintln(os.Stdout, summary)
		if summaryOut != "" {
			fmt.Fprintln(os.Stdout, st.Dim.Render("saved to "+summaryOut))
		}
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summaryOut, "output", "o", "", "write the summary to this file")
}

func summarizeFile(ctx context.Context, path string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := readPDF(path, cfg.MaxUploadBytes)
	if err != nil {
		return "", err
	}

	keys := newKeyStore()
	provider, err := llm.New(ctx, llm.Options{
		Backend:        cfg.LLMBackend,
		Model:          cfg.TextModel,
		VertexProject:  cfg.VertexProject,
		VertexLocation: cfg.VertexLocation,
	}, keys)
	if err != nil {
		return "", err
	}
	defer provider.Close()

	log.WithField("model", provider.Model()).Debug("summarizing")
	summary, err := provider.Summarize(ctx, data, pdfMimeType)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", path, err)
	}
	return summary, nil
}
