package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitwall/vtms/config"
	"github.com/pitwall/vtms/infra/mqtt"
)

var (
	publishQoS    uint8
	publishRetain bool
)

var publishCmd = &cobra.Command{
	Use:   "publish TOPIC PAYLOAD",
	Short: "Publish one message under the gateway namespace",
	Long: `Publish sends a single message to the bus and exits. TOPIC is relative
to the configured namespace, so "publish debug true" reaches the gateway's
debug toggle.`,
	Args: cobra.ExactArgs(2),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().Uint8Var(&publishQoS, "qos", 0, "delivery quality of service (0, 1 or 2)")
	publishCmd.Flags().BoolVar(&publishRetain, "retain", false, "retain the message on the broker")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if publishQoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}

	mqttCfg := cfg.MQTT
	// A fresh client ID keeps this one-shot from stealing the gateway session.
	mqttCfg.ClientID = fmt.Sprintf("%s-pub-%d", mqttCfg.ClientID, time.Now().UnixNano())
	transport, err := mqtt.NewPahoTransport(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt transport: %w", err)
	}
	defer transport.Disconnect()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	if err := transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	topic := cfg.Topics.Namespace + "/" + args[0]
	if err := transport.Publish(topic, []byte(args[1]), publishQoS, publishRetain); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", topic)
	return nil
}
