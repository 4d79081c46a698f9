package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/chunkstream-blue/config"
	"github.com/user/chunkstream-blue/logger"
	"github.com/user/chunkstream-blue/mds"
	"github.com/user/chunkstream-blue/packetizer"
	"github.com/user/chunkstream-blue/util"
	"github.com/user/chunkstream-blue/wire"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chunkstream-server",
	Short: "Run the diagnostic data export service on a simulated BLE stack",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	queue := packetizer.NewQueue()
	seedDemoEvents(queue)

	stack := wire.NewStack()
	service := mds.NewService(stack, queue, mds.DefaultDescriptor(), mds.Values{
		SupportedFeatures: []byte{0x00},
		DeviceID:          cfg.DeviceSerial,
		DataURI:           cfg.ChunksURI(),
		Authorization:     cfg.Authorization(),
	})
	stack.SetEventHandler(service.HandleEvent)

	if err := stack.Start(); err != nil {
		return err
	}
	defer stack.Stop()

	stack.RegisterApp()
	if err := stack.StartAdvertising(); err != nil {
		return err
	}

	logger.Info("main", "device %s (%s) up, %d diagnostic messages queued",
		cfg.DeviceName, cfg.DeviceSerial, queue.MessageCount())

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
	<-sigchan

	logger.Info("main", "shutting down")
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	// Fall back to the default location, or built-in defaults if absent.
	if _, err := os.Stat(util.DefaultConfigPath()); err == nil {
		return config.Load(util.DefaultConfigPath())
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// seedDemoEvents queues a few synthetic diagnostic records so an export
// session has data to stream.
func seedDemoEvents(queue *packetizer.Queue) {
	now := time.Now()
	events := []packetizer.Event{
		{Kind: packetizer.KindReboot, CapturedAt: now.Add(-2 * time.Hour), Attributes: map[string]any{"reason": "power_on"}},
		{Kind: packetizer.KindHeartbeat, CapturedAt: now.Add(-time.Hour), Attributes: map[string]any{"uptime_s": 3600, "battery_pct": 87}},
		{Kind: packetizer.KindTrace, CapturedAt: now.Add(-30 * time.Minute), Attributes: map[string]any{"task": "sensor_poll", "duration_ms": 12}},
		{Kind: packetizer.KindHeartbeat, CapturedAt: now, Attributes: map[string]any{"uptime_s": 7200, "battery_pct": 85}},
	}
	for _, ev := range events {
		if err := queue.EnqueueEvent(ev); err != nil {
			logger.Warn("main", "failed to queue demo event: %v", err)
		}
	}
}
