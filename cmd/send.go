package cmd

import (
	"fmt"
	"strings"

	"github.com/ColonelBlimp/cwengine/internal/config"
	"github.com/ColonelBlimp/cwengine/internal/generator"
	"github.com/ColonelBlimp/cwengine/internal/sink"
	"github.com/ColonelBlimp/cwengine/internal/slope"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Send text as Morse code sidetone audio",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var sendAsRepresentation bool

func init() {
	sendCmd.Flags().BoolVar(&sendAsRepresentation, "rep", false, "treat the argument as a raw dot/dash representation instead of text")
	rootCmd.AddCommand(sendCmd)
}

func runSend(_ *cobra.Command, args []string) error {
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

	if sendAsRepresentation {
		for _, rep := range args {
			if err := gen.EnqueueRepresentation(rep); err != nil {
				return fmt.Errorf("enqueue representation %q: %w", rep, err)
			}
		}
	} else {
		text := strings.Join(args, " ")
		if err := gen.EnqueueString(text); err != nil {
			return fmt.Errorf("enqueue text: %w", err)
		}
	}

	gen.Queue().WaitForLevel(func(length int) bool { return length == 0 })
	gen.Queue().WaitForEndOfCurrentTone()

	return nil
}

// newSink constructs the unopened Sink matching settings.Backend and
// returns the concrete backend tag to report through
// Generator.SetSoundDevice. The Generator's own Start call is responsible
// for Open/Close.
//
// "soundcard" is the config's friendly spelling for "let the platform
// pick"; it is resolved here to a concrete backend before ever reaching
// the Sink/Generator boundary, since sink.Open rejects the Soundcard
// umbrella tag directly (spec.md §4.8: "selecting a soundcard umbrella
// backend without choosing a concrete backend is rejected").
func newSink(settings *config.Settings) (sink.Sink, sink.Backend, error) {
	switch settings.Backend {
	case "none", "null":
		return sink.NewNull(), sink.Null, nil
	case "console":
		return sink.NewConsole(), sink.Console, nil
	case "soundcard":
		return sink.NewSoundcard(), sink.PulseAudio, nil
	case "oss":
		return sink.NewSoundcard(), sink.OSS, nil
	case "alsa":
		return sink.NewSoundcard(), sink.ALSA, nil
	case "pulseaudio":
		return sink.NewSoundcard(), sink.PulseAudio, nil
	default:
		return nil, sink.None, fmt.Errorf("unknown backend %q", settings.Backend)
	}
}

// applyGeneratorSettings pushes the config's generator fields onto gen,
// once at startup; SetXxx still validates each one individually.
func applyGeneratorSettings(gen *generator.Generator, settings *config.Settings) error {
	if err := gen.SetSpeed(settings.SendSpeedWPM); err != nil {
		return err
	}
	if err := gen.SetFrequency(settings.FrequencyHz); err != nil {
		return err
	}
	if err := gen.SetVolume(settings.VolumePct); err != nil {
		return err
	}
	if err := gen.SetGap(settings.GapUnits); err != nil {
		return err
	}
	if err := gen.SetWeighting(settings.WeightingPct); err != nil {
		return err
	}

	shape, ok := slopeShapeOf(settings.ToneSlopeShape)
	if !ok {
		return fmt.Errorf("unknown tone_slope_shape %q", settings.ToneSlopeShape)
	}
	return gen.SetSlope(int(shape), settings.ToneSlopeDurationUs)
}

func slopeShapeOf(name string) (slope.Shape, bool) {
	switch name {
	case "linear":
		return slope.Linear, true
	case "sine":
		return slope.Sine, true
	case "raised_cosine":
		return slope.RaisedCosine, true
	case "rectangular":
		return slope.Rectangular, true
	default:
		return 0, false
	}
}
