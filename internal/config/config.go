package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	SourceBLE  = "ble"
	SourceMQTT = "mqtt"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	LokiURL         string
	LokiToken       string
	LokiStreamKey   string
	LokiStreamValue string

	// AdvSource selects where advertisements come from: the local BLE
	// adapter or an MQTT relay fed by a remote scanner.
	AdvSource  string
	BLEAdapter string

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	// MetricsAddr is the listen address of the /metrics server. Empty disables it.
	MetricsAddr string
}

// Load reads an optional .env file from the working directory and then
// builds the config from the process environment. Variables already set in
// the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFromEnv()
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	lokiURL, err := required("LOKI_URL")
	if err != nil {
		return Config{}, err
	}
	lokiURL = strings.TrimSpace(lokiURL)
	lokiToken, err := required("LOKI_TOKEN")
	if err != nil {
		return Config{}, err
	}
	lokiStreamValue, err := required("LOKI_STREAM_VALUE")
	if err != nil {
		return Config{}, err
	}

	lokiStreamKey := strings.TrimSpace(os.Getenv("LOKI_STREAM_KEY"))
	if lokiStreamKey == "" {
		lokiStreamKey = "house"
	}

	advSource := strings.ToLower(strings.TrimSpace(os.Getenv("ADV_SOURCE")))
	if advSource == "" {
		advSource = SourceBLE
	}
	switch advSource {
	case SourceBLE, SourceMQTT:
	default:
		return Config{}, fmt.Errorf("invalid ADV_SOURCE %q (allowed: ble, mqtt)", advSource)
	}

	bleAdapter := strings.TrimSpace(os.Getenv("BLE_ADAPTER"))
	if bleAdapter == "" {
		bleAdapter = "hci0"
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	// Two scanners sharing a broker must not collide on the client id.
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "thermoscan-" + uuid.NewString()
	}

	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "thermoscan/advertisements"
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		LokiURL:         lokiURL,
		LokiToken:       lokiToken,
		LokiStreamKey:   lokiStreamKey,
		LokiStreamValue: lokiStreamValue,
		AdvSource:       advSource,
		BLEAdapter:      bleAdapter,
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    mqttClientID,
		MQTTTopic:       mqttTopic,
		MetricsAddr:     strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}, nil
}

// required returns the variable as given. Token and stream value are opaque,
// so only a blank value is rejected.
func required(key string) (string, error) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
