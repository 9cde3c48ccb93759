package commands

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zenbanez/docuvoice-ai/config"
	"github.com/zenbanez/docuvoice-ai/internal/credentials"
	"github.com/zenbanez/docuvoice-ai/internal/logger"
)

var (
	// Global flags
	keyFile string
	verbose bool

	cfg *config.App
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "voice-cli",
	Short: "Talk to your PDF documents",
	Long: `DocuVoice CLI - summarize a PDF and hold a spoken conversation about it.

Examples:
  # Print a Markdown summary and keep a copy for later sessions
  voice-cli summarize report.pdf -o report.md

  # Talk about the document, grounded on the saved summary
  voice-cli talk report.pdf --summary-file report.md

  # Show which microphone and speaker will be used
  voice-cli devices
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		log = logger.NewWithOutput(os.Stderr, "text")
		log.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"), logrus.WarnLevel))
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&keyFile, "key-file", "", "file holding the Gemini API key (default ~/.docuvoice/key)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(talkCmd)
	rootCmd.AddCommand(devicesCmd)
}

func newKeyStore() *credentials.KeyStore {
	file := keyFile
	if file == "" {
		file = cfg.GeminiKeyFile
	}
	if file == "" {
		if home, err := os.UserHomeDir(); err == nil {
			file = filepath.Join(home, ".docuvoice", "key")
		}
	}
	return credentials.NewKeyStore(file, cfg.GeminiAPIKey, log)
}
