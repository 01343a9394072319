package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwengine/internal/audio"
	"github.com/ColonelBlimp/cwengine/internal/sink"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture and playback sound devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(_ *cobra.Command, _ []string) error {
	capture := audio.New(audio.DefaultConfig())
	if err := capture.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			fmt.Printf("warning: close audio capture: %v\n", err)
		}
	}()

	captureDevices, err := capture.ListDevices()
	if err != nil {
		return fmt.Errorf("list capture devices: %w", err)
	}
	fmt.Println("capture devices:")
	for i, d := range captureDevices {
		fmt.Printf("  [%d] %s\n", i, d.Name())
	}

	playbackDevices, err := sink.ListPlaybackDevices()
	if err != nil {
		return fmt.Errorf("list playback devices: %w", err)
	}
	fmt.Println("playback devices:")
	for i, d := range playbackDevices {
		fmt.Printf("  [%d] %s\n", i, d.Name())
	}
	return nil
}
