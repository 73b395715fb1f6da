package main

import (
	"github.com/rnative/rnative-client/commands"
)

var (
	version      = "Unknown"
	sourceCommit = "Unknown"
)

func main() {
	commands.Execute(commands.BuildInfo{Version: version, SourceCommit: sourceCommit})
}
