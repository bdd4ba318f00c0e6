package main

import (
	"fmt"
	"os"

	"http1server/internal/bootstrap"
	"http1server/internal/config"
	"http1server/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	conf, err := config.MustLoad(args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	closer, err := logging.Setup(conf.LogLevel(), conf.LogFile())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return 1
	}
	defer func() {
		_ = closer.Close()
	}()

	app, err := bootstrap.New(conf)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		return 1
	}

	if err = app.Run(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return 1
	}
	return 0
}
