package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ColonelBlimp/cwengine/internal/config"
	"github.com/ColonelBlimp/cwengine/internal/generator"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Drive the generator as a straight key from stdin",
	Long: `key toggles the generator between key-down (mark) and key-up (space) on
every Enter press, for manual keyer testing without a physical key. Stdin is
line-buffered, so this toggles rather than tracking a held spacebar; type
"q" and Enter to quit.`,
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

func runKey(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, backend, err := newSink(settings)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}

	gen := generator.New(s, "")
	gen.SetSoundDevice(backend, settings.DeviceName)
	if err := applyGeneratorSettings(gen, settings); err != nil {
		return fmt.Errorf("apply generator settings: %w", err)
	}

	if err := gen.Start(); err != nil {
		return fmt.Errorf("start generator: %w", err)
	}
	defer func() {
		if err := gen.Stop(); err != nil {
			fmt.Printf("warning: stop generator: %v\n", err)
		}
	}()

	fmt.Println("press Enter to key down, Enter again to key up, 'q' then Enter to quit.")
	down := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if scanner.Text() == "q" {
			break
		}
		down = !down
		if down {
			if err := gen.BeginMark(); err != nil {
				fmt.Printf("warning: begin mark: %v\n", err)
			}
			fmt.Println("key down")
			continue
		}
		if err := gen.BeginSpace(true); err != nil {
			fmt.Printf("warning: begin space: %v\n", err)
		}
		fmt.Println("key up")
	}
	return scanner.Err()
}
