// Gray Link Gateway
//
// This is the main entry point for the Gray Link Gateway application.
// The gateway continuously bridges externally-managed automation
// entities (Home Assistant) to a canonical device/property model
// published over MQTT, and routes inbound control commands back to the
// source system with verification.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-link-gateway/internal/bridge"
	"github.com/nerrad567/gray-link-gateway/internal/gateway"
	"github.com/nerrad567/gray-link-gateway/internal/infrastructure/config"
	"github.com/nerrad567/gray-link-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/gray-link-gateway/internal/resolver"
	"github.com/nerrad567/gray-link-gateway/internal/session"
	"github.com/nerrad567/gray-link-gateway/internal/source"
	"github.com/nerrad567/gray-link-gateway/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Link Gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Source state client
	src := source.NewClient(source.Config{
		URL:            cfg.Source.URL,
		Token:          cfg.Source.Token,
		RequestTimeout: cfg.GetRequestTimeout(),
		RetryAttempts:  cfg.Source.RetryAttempts,
		RetryDelay:     cfg.GetRetryDelay(),
	})

	if err := src.Ping(ctx); err != nil {
		return fmt.Errorf("source API unreachable: %w", err)
	}
	log.Info("source API reachable", "url", cfg.Source.URL)

	// Reference clock for credential rotation
	var clock session.NowSource
	if cfg.TimeSync.Enabled {
		ntpClock := session.NewClock(cfg.TimeSync.Server, cfg.GetTimeSyncInterval(), log)
		go ntpClock.Run(ctx)
		clock = ntpClock
		log.Info("time sync enabled", "server", cfg.TimeSync.Server)
	} else {
		clock = localClock{}
		log.Info("time sync disabled, using local clock")
	}

	// Broker identity: the gateway's own credentials, or the first
	// enabled device for single-device deployments.
	username, secret, err := brokerIdentity(cfg)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Options{
		Host:           cfg.MQTT.Broker.Host,
		Port:           cfg.MQTT.Broker.Port,
		TLS:            cfg.MQTT.Broker.TLS,
		ClientID:       cfg.MQTT.Broker.ClientID,
		Username:       username,
		Credentials:    session.NewCredentials(secret),
		Clock:          clock,
		QoS:            byte(cfg.MQTT.QoS),
		InitialBackoff: time.Duration(cfg.MQTT.Reconnect.InitialDelay) * time.Second,
		MaxBackoff:     time.Duration(cfg.MQTT.Reconnect.MaxDelay) * time.Second,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	if err := sess.Connect(); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer func() {
		log.Info("closing broker session")
		sess.Close()
	}()
	log.Info("broker connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	topics := session.Topics{Namespace: cfg.MQTT.Namespace}

	collector := telemetry.NewCollector(src, telemetry.Options{
		ReadinessTimeout: cfg.GetReadinessTimeout(),
		ReadinessPoll:    cfg.GetReadinessPoll(),
	}, log)

	loop := gateway.New(
		src,
		resolver.New(log),
		collector,
		sess,
		deviceSpecs(cfg.Devices),
		gateway.Options{
			StartupDelay:      cfg.GetStartupDelay(),
			PushInterval:      cfg.GetPushInterval(),
			DiscoveryInterval: cfg.GetDiscoveryInterval(),
			Topics:            topics,
		},
		log,
	)

	// Command bridge consumes the session's inbound queue on its own
	// goroutine; the loop supplies catalog snapshots and state re-publish.
	commandBridge := bridge.New(loop, src, sess, loop, bridge.Options{
		Topics:      topics,
		VerifyDelay: cfg.GetVerifyDelay(),
	}, log)
	go commandBridge.Run(ctx, sess.Messages())

	log.Info("initialisation complete, starting gateway loop",
		"devices", len(cfg.Devices),
		"push_interval", cfg.GetPushInterval().String(),
	)

	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("gateway loop: %w", err)
	}

	log.Info("Gray Link Gateway stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// brokerIdentity selects the username/secret pair for the broker
// session: explicit gateway credentials when configured, otherwise the
// first enabled device's routing identity.
func brokerIdentity(cfg *config.Config) (username, secret string, err error) {
	if cfg.MQTT.Username != "" && cfg.MQTT.Secret != "" {
		return cfg.MQTT.Username, cfg.MQTT.Secret, nil
	}

	for _, dev := range cfg.Devices {
		if !dev.Enabled {
			continue
		}
		return fmt.Sprintf("%s&%s", dev.DeviceName, dev.ProductKey), dev.DeviceSecret, nil
	}

	return "", "", fmt.Errorf("no broker credentials: set mqtt.username/mqtt.secret or enable a device")
}

// deviceSpecs converts configured devices into resolver specs.
func deviceSpecs(devices []config.DeviceConfig) []resolver.DeviceSpec {
	specs := make([]resolver.DeviceSpec, 0, len(devices))
	for _, dev := range devices {
		specs = append(specs, resolver.DeviceSpec{
			ID:                  dev.ID,
			Category:            resolver.Category(dev.Category),
			EntityPrefix:        dev.EntityPrefix,
			SupportedProperties: dev.SupportedProperties,
			RoutingKey: resolver.RoutingKey{
				ProductKey: dev.ProductKey,
				DeviceName: dev.DeviceName,
			},
			DeviceSecret:      dev.DeviceSecret,
			ConversionFactors: dev.ConversionFactors,
			Enabled:           dev.Enabled,
		})
	}
	return specs
}

// localClock satisfies session.NowSource when time sync is disabled.
type localClock struct{}

func (localClock) Now() time.Time { return time.Now() }
