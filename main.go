package main

import (
	cmd "github.com/textchain/textchain/cmd/textchain"
	"github.com/textchain/textchain/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting textchain")
	cmd.Execute()
}
