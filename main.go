package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Errorf("command failed: %v", err)
		os.Exit(1)
	}
}
