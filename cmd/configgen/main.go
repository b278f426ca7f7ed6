// Command configgen writes or validates a usbtotal.toml file.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/danmuck/usbtotal/internal/config"
	"github.com/danmuck/usbtotal/internal/logging"
	"github.com/rs/zerolog/log"
)

type cli struct {
	Output   string `help:"Output path for the config template" default:"usbtotal.toml"`
	Force    bool   `help:"Overwrite an existing config file"`
	Validate string `help:"Validate an existing config file instead of writing one" type:"existingfile"`
}

func main() {
	var params cli
	kong.Parse(&params, kong.Name("configgen"))
	logging.ConfigureRuntime()

	if err := run(params); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(params cli) error {
	if params.Validate != "" {
		if _, err := config.Load(params.Validate); err != nil {
			return err
		}
		log.Info().Str("path", params.Validate).Msg("config valid")
		return nil
	}
	if err := config.WriteTemplate(params.Output, params.Force); err != nil {
		return err
	}
	log.Info().Str("path", params.Output).Msg("wrote config template")
	return nil
}
