package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zenbanez/docuvoice-ai/internal/audio"
	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

const speakerFrames = 1024

var (
	talkSummaryFile string
	talkSummarize   bool
)

var talkCmd = &cobra.Command{
	Use:   "talk <file.pdf>",
	Short: "Talk about a PDF",
	Long: `Open a live voice session about a PDF using the default microphone and speaker.

The session is grounded on a summary: pass one saved by 'summarize -o', or use
--summarize to create it first. Without either the model only knows the file name.

Examples:
  voice-cli talk report.pdf --summary-file report.md
  voice-cli talk report.pdf --summarize`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := args[0]
		if _, err := readPDF(path, cfg.MaxUploadBytes); err != nil {
			return err
		}
		doc := voice.DocumentContext{Name: filepath.Base(path)}
		switch {
		case talkSummaryFile != "":
			b, err := os.ReadFile(talkSummaryFile)
			if err != nil {
				return fmt.Errorf("read summary: %w", err)
			}
			doc.Summary = strings.TrimSpace(string(b))
		case talkSummarize:
			summary, err := summarizeFile(ctx, path)
			if err != nil {
				return err
			}
			doc.Summary = summary
		}

		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("init audio: %w", err)
		}
		defer portaudio.Terminate()

		devices := voice.NewDevices(
			func() (voice.Microphone, error) { return audio.NewMicrophone(log), nil },
			func() (voice.Output, error) {
				sp, err := audio.OpenSpeaker(voice.OutputSampleRate, speakerFrames, log)
				if err != nil {
					return nil, err
				}
				return sp, nil
			},
		)
		defer devices.Close()

		st := newStyles(os.Stdout)
		keys := newKeyStore()
		pr := newPrinter(os.Stdout, st)
		ctrl := voice.NewController(live.NewGemini(keys), devices, doc,
			voice.WithCredentialGate(keys.Gate(promptSelector(os.Stdin, os.Stdout, st, keys))),
			voice.WithRequireCredential(cfg.VoiceRequireCredential),
			voice.WithObserver(pr),
			voice.WithLogger(log),
			voice.WithModel(cfg.LiveModel, cfg.LiveVoice),
		)
		defer ctrl.Close()

		fmt.Fprintln(os.Stdout, st.Title.Render(doc.Name))
		if err := ctrl.Start(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			ctrl.Stop()
		case <-pr.Done():
		}

		snap := ctrl.Snapshot()
		log.WithFields(logrus.Fields{
			"blocks_sent":      snap.BlocksSent,
			"fragments_played": snap.FragmentsPlayed,
			"interruptions":    snap.Interruptions,
		}).Debug("session stats")
		if snap.Error != "" {
			return errors.New(snap.Error)
		}
		return nil
	},
}

func init() {
	talkCmd.Flags().StringVar(&talkSummaryFile, "summary-file", "", "Markdown summary to ground the session on")
	talkCmd.Flags().BoolVar(&talkSummarize, "summarize", false, "summarize the PDF before talking")
}
