// Package main provides the DocuVoice terminal client.
//
// Usage:
//
//	voice-cli [flags] <command> [args]
//
// Commands:
//
//	summarize - Summarize a PDF with the text model
//	talk      - Hold a live voice conversation about a PDF
//	devices   - List audio devices
//
// The Gemini key is read from GEMINI_API_KEY or the key file, and prompted for when neither is set.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/zenbanez/docuvoice-ai/app/voice-cli/commands"
)

func main() {
	_ = godotenv.Load()
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
