package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingPort = errors.New("usage: http1server <port>")
	ErrInvalidPort = errors.New("port must be an integer between 0 and 65535")
)

type config struct {
	port       string
	serverName string
	docRoot    string

	maxWorkers  int
	warmWorkers int

	readTimeout time.Duration
	linger      time.Duration
	cgiTimeout  time.Duration

	logLevel string
	logFile  string

	monitorEnabled bool

	pprofEnabled bool
	pprofPort    string
}

func parse(args []string) (*config, error) {
	port, err := parsePort(args)
	if err != nil {
		return nil, err
	}

	maxWorkers, err := getenvInt("MAX_WORKERS", 50)
	if err != nil {
		return nil, err
	}
	if maxWorkers < 1 {
		return nil, fmt.Errorf("MAX_WORKERS must be positive, got %d", maxWorkers)
	}

	warmWorkers, err := getenvInt("WARM_WORKERS", 5)
	if err != nil {
		return nil, err
	}
	if warmWorkers < 0 || warmWorkers > maxWorkers {
		return nil, fmt.Errorf("WARM_WORKERS must be between 0 and MAX_WORKERS, got %d", warmWorkers)
	}

	readTimeout, err := getenvDuration("READ_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}

	linger, err := getenvDuration("LINGER", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cgiTimeout, err := getenvDuration("CGI_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	monitorEnabled := getenvBool("MONITOR_ENABLED", false)
	logFile := getenv("LOG_FILE", "")
	if monitorEnabled && logFile == "" {
		logFile = "http1server.log"
	}

	return &config{
		port:           port,
		serverName:     getenv("SERVER_NAME", "127.0.0.1"),
		docRoot:        getenv("DOC_ROOT", "."),
		maxWorkers:     maxWorkers,
		warmWorkers:    warmWorkers,
		readTimeout:    readTimeout,
		linger:         linger,
		cgiTimeout:     cgiTimeout,
		logLevel:       getenv("LOG_LEVEL", "info"),
		logFile:        logFile,
		monitorEnabled: monitorEnabled,
		pprofEnabled:   getenvBool("PPROF_ENABLED", false),
		pprofPort:      getenv("PPROF_PORT", "6060"),
	}, nil
}

func loadEnvFile() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func parsePort(args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrMissingPort
	}

	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPort, args[0])
	}
	return strconv.Itoa(port), nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val == "true"
}

func getenvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}
