package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/automatedhome/ipx800-lights/pkg/config"
	"github.com/automatedhome/ipx800-lights/pkg/homeassistant"
	"github.com/automatedhome/ipx800-lights/pkg/ipx800"
	"github.com/automatedhome/ipx800-lights/pkg/light"
	"github.com/automatedhome/ipx800-lights/pkg/metrics"
	"github.com/automatedhome/ipx800-lights/pkg/stream"
)

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Logging.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.ToLower(cfg.Logging.Format) == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func httpStatus(host *homeassistant.Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		js, err := json.Marshal(host.States())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(js); err != nil {
			log.Println(err)
		}
	}
}

// httpHealthCheck reports healthy while polls keep happening.
func httpHealthCheck(host *homeassistant.Host, interval time.Duration) http.HandlerFunc {
	timeout := 3 * interval
	return func(w http.ResponseWriter, r *http.Request) {
		if host.LastPoll().Add(timeout).After(time.Now()) {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

func main() {
	configFile := flag.String("config", "/config.yaml", "Provide configuration file with IPX800 and MQTT settings")
	envFile := flag.String("env-file", ".env", "Optional file with IPX800_* environment overrides")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Warnf("Could not load %s: %v", *envFile, err)
	}

	log.Printf("Reading configuration from %s", *configFile)
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Error synthesizing configuration: %v", err)
	}
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	promMetrics := metrics.New(reg)

	deviceID := light.IDPrefix(cfg.Host)
	host := homeassistant.NewHost(homeassistant.HostOptions{
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		BaseTopic:       cfg.MQTT.BaseTopic,
		DeviceID:        deviceID,
		DeviceName:      "IPX800 " + cfg.Host,
	}, promMetrics)

	hub := stream.NewHub()
	defer hub.Close()
	host.SetStateSink(hub)

	// Setup connection with IPX800
	ipx := ipx800.New(cfg.Host, cfg.Port, cfg.APIKey)
	if err := light.Setup(ctx, cfg, ipx, host.Register); err != nil {
		log.Fatalf("Error setting up IPX800 lights: %v", err)
	}
	if len(host.States()) == 0 {
		log.Warn("No relay or PWM channel enabled, nothing to expose")
	}

	broker, err := homeassistant.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, []string{host.CommandTopicFilter()},
		func(topic string, payload []byte) {
			host.Submit(topic, payload)
		})
	if err != nil {
		log.Fatalf("Error connecting to MQTT broker: %v", err)
	}
	defer broker.Disconnect(1000)

	if err := host.Start(broker); err != nil {
		log.Fatalf("Error announcing lights to Home Assistant: %v", err)
	}
	go host.ServeCommands(ctx)

	mux := http.NewServeMux()
	// Expose metrics
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	// Report current light states
	mux.HandleFunc("/status", httpStatus(host))
	// Expose healthcheck
	mux.HandleFunc("/health", httpHealthCheck(host, cfg.ScanInterval))
	// Stream state changes
	mux.Handle("/ws", hub)

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Printf("Polling %d light(s) every %s", len(host.States()), cfg.ScanInterval)
	host.Run(ctx, cfg.ScanInterval)

	log.Println("Shutting down")
	if err := host.Stop(); err != nil {
		log.Printf("Could not publish offline status: %v", err)
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}
