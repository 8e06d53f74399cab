// Command ircd runs a single-node IRC server.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/relaine/ircd/internal/ircd"
)

// args are the command line arguments, parsed the way horgh/catbox's
// args.go does it, with the flag name and default spec.md section 6 fixes:
// `--config <path>`, defaulting to config.json.
type args struct {
	ConfigFile string
}

func getArgs() *args {
	configFile := flag.String("config", "config.json", "Configuration file.")
	flag.Parse()

	configPath, err := filepath.Abs(*configFile)
	if err != nil {
		printUsage(fmt.Errorf("unable to determine path to the configuration file: %s", err))
		return nil
	}

	return &args{ConfigFile: configPath}
}

func printUsage(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
	_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <arguments>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logrus.StandardLogger())

	a := getArgs()
	if a == nil {
		os.Exit(1)
	}

	config, err := ircd.LoadConfig(a.ConfigFile)
	if err != nil {
		log.WithError(err).Fatal("unable to load configuration")
	}

	addr := fmt.Sprintf(":%d", config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Fatal("unable to listen")
	}

	log.WithField("addr", addr).Info("listening")

	registry := ircd.NewRegistry(config, log)
	if err := registry.Run(ln); err != nil {
		log.WithError(err).Fatal("server shut down")
	}
}
