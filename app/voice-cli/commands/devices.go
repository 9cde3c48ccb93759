package commands

import (
	"fmt"
	"os"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/zenbanez/docuvoice-ai/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("init audio: %w", err)
		}
		defer portaudio.Terminate()

		list, err := audio.ListDevices()
		if err != nil {
			return err
		}
		st := newStyles(os.Stdout)
		for _, d := range list {
			fmt.Fprintln(os.Stdout, formatDevice(st, d))
		}
		return nil
	},
}

func formatDevice(st styles, d audio.DeviceInfo) string {
	var marks string
	if d.DefaultInput {
		marks += " " + st.Label.Render("[default in]")
	}
	if d.DefaultOutput {
		marks += " " + st.Label.Render("[default out]")
	}
	return fmt.Sprintf("%s%s\n  %s", d.Name, marks,
		st.Dim.Render(fmt.Sprintf("%s  in:%d out:%d  %.0f Hz", d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)))
}
