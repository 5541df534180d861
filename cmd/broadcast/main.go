// Command broadcast is the single-node Maelstrom broadcast node.
package main

import (
	"log/slog"
	"os"

	glomers "github.com/mponcet/gossip-glomers"
	"github.com/mponcet/gossip-glomers/nodes/broadcast"
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

	h := broadcast.New()
	rt := glomers.WithHandler(glomers.NewBuilder(
		glomers.WithConfig(conf),
		glomers.WithLogger(logger),
	), glomers.Handler[broadcast.Request, broadcast.Response](h)).Build()

	if err := rt.Run(); err != nil {
		os.Exit(1)
	}
	logger.Debug("Broadcast values stored", glomers.LogFields{"count": len(h.Messages())})
}
