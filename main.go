// Package main is the entry point for the multidl application.
package main

import (
	"github.com/multidl-cli/multidl/cmd"
	"github.com/multidl-cli/multidl/config"
	"github.com/multidl-cli/multidl/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
