package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("base_rpc_url", "BASE_RPC_URL")
		viper.BindEnv("store_backend", "STORE_BACKEND")
		viper.BindEnv("data_dir", "DATA_DIR")
		viper.BindEnv("price_check_interval", "PRICE_CHECK_INTERVAL")
		viper.BindEnv("wallet_check_interval", "WALLET_CHECK_INTERVAL")
		viper.BindEnv("tx_scan_blocks", "TX_SCAN_BLOCKS")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("telegram_chat_id", "TELEGRAM_CHAT_ID")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("debug", "DEBUG")

		viper.SetDefault("base_rpc_url", "https://mainnet.base.org")
		viper.SetDefault("store_backend", "json")
		viper.SetDefault("data_dir", "data")
		viper.SetDefault("price_check_interval", 2*time.Minute)
		viper.SetDefault("wallet_check_interval", 5*time.Minute)
		viper.SetDefault("tx_scan_blocks", 25)
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	InitConfig()
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
