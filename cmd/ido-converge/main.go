// Package main is the entry point for the ido-converge tool.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/ido-converge/internal/idomysql"
)

func main() {
	idomysql.NewApp().Run()
}
