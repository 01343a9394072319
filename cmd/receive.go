package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/cwengine/internal/audio"
	"github.com/ColonelBlimp/cwengine/internal/config"
	"github.com/ColonelBlimp/cwengine/internal/cwerr"
	"github.com/ColonelBlimp/cwengine/internal/dsp"
	"github.com/ColonelBlimp/cwengine/internal/metrics"
	"github.com/ColonelBlimp/cwengine/internal/publish"
	"github.com/ColonelBlimp/cwengine/internal/receiver"
	"github.com/ColonelBlimp/cwengine/internal/timing"
	"github.com/spf13/cobra"
)

// pollInterval is how often the receive loop re-checks the receiver for a
// resolved character or word boundary while no tone events are arriving.
const pollInterval = 10 * time.Millisecond

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Decode CW from audio input and print the resulting text",
	RunE:  runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)
}

func runReceive(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nreceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	goertzel, err := dsp.NewGoertzel(dsp.GoertzelConfig{
		TargetFrequency: settings.ToneFrequency,
		SampleRate:      settings.SampleRate,
		BlockSize:       settings.BlockSize,
	})
	if err != nil {
		return fmt.Errorf("init goertzel: %w", err)
	}

	detector, err := dsp.NewDetector(dsp.DetectorConfig{
		Threshold:       settings.Threshold,
		Hysteresis:      settings.Hysteresis,
		OverlapPct:      settings.OverlapPct,
		AGCEnabled:      settings.AGCEnabled,
		AGCDecay:        settings.AGCDecay,
		AGCAttack:       settings.AGCAttack,
		AGCWarmupBlocks: settings.AGCWarmupBlocks,
	}, goertzel)
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}

	rx := receiver.New(timing.ReceiverParams{
		SpeedWPM:     settings.ReceiveSpeedWPM,
		TolerancePct: settings.ReceiveTolerancePct,
		Adaptive:     settings.ReceiveAdaptive,
		GapUnits:     settings.ReceiveGapUnits,
	})
	if settings.NoiseSpikeThresholdUs > 0 {
		if err := rx.SetNoiseSpikeThreshold(settings.NoiseSpikeThresholdUs); err != nil {
			return fmt.Errorf("set noise spike threshold: %w", err)
		}
	}

	var mqttPub *publish.Publisher
	if settings.MQTTBrokerURL != "" {
		mqttPub, err = publish.New(settings.MQTTBrokerURL, settings.MQTTTopic)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer mqttPub.Disconnect()
	}

	var m *metrics.Metrics
	if settings.MetricsListenAddr != "" {
		m = metrics.New()
		srv := metrics.NewServer(settings.MetricsListenAddr)
		srv.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	detector.SetCallback(func(event dsp.ToneEvent) {
		ts := event.Timestamp.UnixMicro()
		if event.ToneOn {
			if err := rx.MarkBegin(ts); err != nil && !cwerr.Is(err, cwerr.OutOfRange) {
				fmt.Printf("warning: mark begin: %v\n", err)
			}
			return
		}
		if err := rx.MarkEnd(ts); err != nil && !cwerr.Is(err, cwerr.Again) {
			fmt.Printf("warning: mark end: %v\n", err)
		}
	})

	capture := audio.New(audio.Config{
		DeviceIndex: settings.DeviceIndex,
		SampleRate:  uint32(settings.SampleRate),
		Channels:    uint32(settings.Channels),
		BufferSize:  uint32(settings.BufferSize),
	})
	if err := capture.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			fmt.Printf("warning: close audio capture: %v\n", err)
		}
	}()
	capture.SetCallback(detector.Process)

	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}

	fmt.Println("receiving... press Ctrl+C to stop.")
	pollLoop(ctx, rx, m, mqttPub, settings)

	if err := capture.Stop(); err != nil && err != audio.ErrNotRunning {
		fmt.Printf("warning: stop audio capture: %v\n", err)
	}
	fmt.Println()
	return nil
}

func pollLoop(ctx context.Context, rx *receiver.Receiver, m *metrics.Metrics, mqttPub *publish.Publisher, settings *config.Settings) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c, endOfWord, err := rx.PollCharacter(now.UnixMicro())
			switch {
			case err == nil:
				fmt.Print(string(c))
				if mqttPub != nil {
					mqttPub.PublishCharacter("receive", string(c), rx.Speed(), now)
				}
				if endOfWord {
					fmt.Print(" ")
				}
				if m != nil {
					m.CharactersRecvd.WithLabelValues("receive").Inc()
					m.ReceiverWPM.WithLabelValues("receive").Set(float64(rx.Speed()))
					m.ReceiverRMSUs.WithLabelValues("receive").Set(rx.GetStatistics().Overall())
				}
				rx.ClearBuffer()
			case cwerr.Is(err, cwerr.Again), cwerr.Is(err, cwerr.OutOfRange):
				// not ready yet, try again next tick
			case endOfWord:
				if settings.Debug {
					fmt.Printf("[err: %v]", err)
				}
				rx.ClearBuffer()
			default:
				if settings.Debug {
					fmt.Printf("[err: %v]", err)
				}
			}
		}
	}
}
