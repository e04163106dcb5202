package main

import (
	"os"

	"github.com/tablechat/tablechat/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
