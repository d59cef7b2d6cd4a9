package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/zecbridge/bridge-go/cmd"
	"github.com/zecbridge/bridge-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "BRIDGE_CONFIG"
)

func main() {
	logconfig.ConfigProductionLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Bridge server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Bridge server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	bsc := PrepareBridgeServerConfig()
	if bsc == nil {
		fmt.Printf("Error loading bridge server configuration\n")
		return
	}

	fmt.Println("Starting bridge server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartBridgeServerAndWait(bsc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareBridgeServerConfig reads configuration variables and returns a BridgeServerConfig.
func PrepareBridgeServerConfig() *cmd.BridgeServerConfig {

	// *** prepare values that aren't string type ***

	var interval time.Duration
	if raw := viper.GetString("COORDINATOR_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Printf("Error parsing COORDINATOR_INTERVAL %q: %s", raw, err)
			return nil
		}
		interval = parsed
	}

	// *** end of preparing values ***

	return &cmd.BridgeServerConfig{
		// ledger side
		LedgerDbFilePath: viper.GetString("LEDGER_DB_FILE_PATH"),
		// token side
		TokenDbFilePath: viper.GetString("TOKEN_DB_FILE_PATH"),
		CustodyAddr:     viper.GetString("CUSTODY_ADDR"),
		// coordinator side
		CoordinatorInterval: interval,
		CoordinatorRetries:  viper.GetInt("COORDINATOR_RETRIES"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
