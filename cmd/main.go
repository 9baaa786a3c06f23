package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"basewatch/config"
	"basewatch/internal/alert"
	"basewatch/internal/chain"
	"basewatch/internal/price"
	"basewatch/internal/store"
	"basewatch/internal/telegram"
	"basewatch/internal/wallet"
)

func init() {
	_ = godotenv.Load()
	config.InitConfig()
	setupLogging()
}

func main() {
	st, closeStore, err := openStore()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	provider := price.NewPaprikaProvider(config.GetString("api_pro_key"))
	chainClient := chain.NewClient(config.GetString("base_rpc_url"))
	wallets := wallet.NewService(chainClient, provider, uint64(config.GetInt("tx_scan_blocks")))

	metrics := alert.NewMetrics(prometheus.DefaultRegisterer)
	service := alert.NewService(st, provider, wallets, metrics)

	if token := config.GetString("telegram_bot_token"); token != "" {
		notifier, err := telegram.NewNotifier(token, config.GetInt64("telegram_chat_id"))
		if err != nil {
			log.Fatalf("Failed to create telegram notifier: %v", err)
		}
		service.SetNotifier(notifier)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := alert.NewScheduler(service,
		config.GetDuration("price_check_interval"),
		config.GetDuration("wallet_check_interval"))
	scheduler.Run(ctx)

	go func() {
		if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
}

func openStore() (store.Store, func(), error) {
	dataDir := config.GetString("data_dir")

	switch backend := config.GetString("store_backend"); backend {
	case "sqlite":
		st, err := store.NewSQLiteStore(filepath.Join(dataDir, "basewatch.db"))
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	case "json":
		st, err := store.NewFileStore(filepath.Join(dataDir, "alerts.json"))
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting basewatch...")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}
