package main

import (
	"os"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Get().Error("command failed", "err", err)
		os.Exit(1)
	}
}
