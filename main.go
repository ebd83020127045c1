/*
Demo entry point: boots the testbed game on top of the engine package.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/penumbra-engine/penumbra/engine/config"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML application config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			core.LogFatal("config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	game, err := testbed.NewGame(cfg)
	if err != nil {
		core.LogFatal("%v", err)
	}
	if err := game.Initialize(); err != nil {
		core.LogFatal("%v", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		// Stop the frame loop; the orderly shutdown below does the rest.
		game.RequestStop()
	}()

	if err := game.Run(); err != nil {
		core.LogError("run: %v", err)
	}
	if err := game.Shutdown(); err != nil {
		core.LogError("shutdown: %v", err)
	}
}
