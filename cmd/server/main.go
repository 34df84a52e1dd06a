package main

import (
	"github.com/cellannotation/cas/internal/server"
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		JSON:   util.GetEnvBool("LOG_JSON", false),
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	server.Init()
}
