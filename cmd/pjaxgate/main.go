/*
This command provides an executable version of pjaxgate.

For the list of command line options, run:

	pjaxgate -help

For details about the routes file and the PJAX features, please see the
documentation of the root pjaxgate package.
*/
package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/pjaxgate/pjaxgate"
	"github.com/pjaxgate/pjaxgate/config"
)

var (
	version string
	commit  string
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	log.SetLevel(cfg.ApplicationLogLevel)
	log.Infof("pjaxgate version %s (commit %s)", version, commit)

	if err := pjaxgate.Run(cfg.ToOptions()); err != nil {
		log.Fatal(err)
	}
}
