// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/ColonelBlimp/cwengine/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cwengine",
	Short: "A Morse code signal engine: send, receive, and key CW over a soundcard",
	Long: `cwengine generates and decodes Morse code (CW). It can send text as
sidetone audio, decode audio into text, or act as a practice keyer, and it
can report its running state over Prometheus and MQTT.`,
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")
	rootCmd.PersistentFlags().String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "MQTT broker URL to republish decoded characters to (empty disables)")

	cobra.CheckErr(viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device")))
	cobra.CheckErr(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	cobra.CheckErr(viper.BindPFlag("metrics_listen_addr", rootCmd.PersistentFlags().Lookup("metrics-addr")))
	cobra.CheckErr(viper.BindPFlag("mqtt_broker_url", rootCmd.PersistentFlags().Lookup("mqtt-broker")))
}

func initConfig() {
	if err := config.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
