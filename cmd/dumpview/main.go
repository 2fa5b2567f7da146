package main

import (
	"os"

	"github.com/go-delve/dumpview/cmd/dumpview/cmds"
	"github.com/go-delve/dumpview/pkg/logflags"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		logflags.WriteError(err.Error())
		os.Exit(1)
	}
}
