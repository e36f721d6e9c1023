package main

import (
	"log/slog"

	"github.com/BioHazard786/Studyhall/internal/cli"
	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/logging"
)

func main() {
	config.LoadDotEnv()
	logging.Init(slog.LevelError)
	cli.Execute()
}
