package main

import (
	"github.com/dexmerge/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
