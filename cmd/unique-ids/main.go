// Command unique-ids is the Maelstrom unique-ids node. GLOMERS_ID_STRATEGY
// picks between per-node counters and ULIDs.
package main

import (
	"log/slog"
	"os"

	glomers "github.com/mponcet/gossip-glomers"
	"github.com/mponcet/gossip-glomers/nodes/uniqueids"
)

func main() {
	conf, err := glomers.LoadConfig()
	if err != nil {
		glomers.NewStderrLogger(slog.LevelInfo, "").Error("Failed to load config", err, nil)
		os.Exit(1)
	}
	level, err := glomers.ParseLogLevel(conf.LogLevel)
	logger := glomers.NewStderrLogger(level, conf.LogFormat)
	if err != nil {
		logger.Error("Invalid log level", err, glomers.LogFields{"log_level": conf.LogLevel})
		os.Exit(1)
	}

	h, err := uniqueids.New(conf.IDStrategy)
	if err != nil {
		logger.Error("Invalid id strategy", err, glomers.LogFields{"id_strategy": conf.IDStrategy})
		os.Exit(1)
	}

	rt := glomers.WithHandler(glomers.NewBuilder(
		glomers.WithConfig(conf),
		glomers.WithLogger(logger),
	), glomers.Handler[uniqueids.Generate, uniqueids.GenerateOk](h)).Build()

	if err := rt.Run(); err != nil {
		os.Exit(1)
	}
	logger.Info("Identifiers issued", glomers.LogFields{"count": h.Issued(), "strategy": h.Strategy()})
}
