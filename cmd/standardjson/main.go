package main

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
)

func main() {
	setupLogger(os.Stderr, false)
	if err := newRootCmd().Execute(); err != nil {
		log.Error("Standard JSON generation failed", "err", err)
		os.Exit(1)
	}
}
