// Package main is the entry point for the gitnar service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/gitnar/cmd/gitnar/app"
)

func main() {
	app.NewApp().Run()
}
