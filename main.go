package main

import (
	"fmt"
	"os"

	"github.com/cnosuke/mcp-finedata/config"
	"github.com/cnosuke/mcp-finedata/logger"
	"github.com/cnosuke/mcp-finedata/server"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const Name = "mcp-finedata"

var (
	// Set by -ldflags at build time.
	Version  = "0.1.6"
	Revision = "xxx"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           Name,
		Usage:          "MCP server exposing the FineData web scraping API as tools",
		Version:        fmt.Sprintf("%s (%s)", Version, Revision),
		DefaultCommand: "server",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the MCP server on stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "path to an optional YAML config file",
						EnvVars: []string{"FINEDATA_CONFIG"},
					},
					&cli.StringFlag{
						Name:    "log",
						Usage:   "write logs to this file instead of stderr",
						EnvVars: []string{"FINEDATA_LOG_PATH"},
					},
					&cli.BoolFlag{
						Name:    "debug",
						Usage:   "enable debug logging",
						EnvVars: []string{"FINEDATA_DEBUG"},
					},
				},
				Action: runServer,
			},
		},
	}
}

func runServer(c *cli.Context) error {
	flush, err := logger.InitLogger(logger.Options{
		Debug: c.Bool("debug"),
		Path:  c.String("log"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize logger: %v", err), 1)
	}
	defer flush()

	// Configuration must be valid before any tool call is accepted.
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			zap.S().Errorw("configuration error", "variable", cfgErr.Variable, "error", err)
		} else {
			zap.S().Errorw("failed to load configuration", "error", err)
		}
		return cli.Exit(fmt.Sprintf("configuration error: %v", err), 1)
	}

	zap.S().Infow("configuration loaded",
		"api_url", cfg.FineData.APIURL,
		"api_key", cfg.MaskedAPIKey(),
		"timeout", cfg.FineData.Timeout)

	if err := server.Run(cfg, Name, Version, Revision); err != nil {
		return cli.Exit(fmt.Sprintf("server error: %v", err), 1)
	}
	return nil
}
