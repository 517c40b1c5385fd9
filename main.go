package main

import (
	"log"

	"github.com/veloria/phototheque/cmd"
	"github.com/veloria/phototheque/config"
)

func main() {
	log.Printf("phototheque %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
