package main

import (
	"lyricd/internal/app"
	"lyricd/internal/config"
)

func main() {
	cfg := config.Load()
	app := app.New(cfg)
	app.Run()
}
