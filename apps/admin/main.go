package main

import (
	"fmt"
	"log"
	"os"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/services/logger"
)

func main() {
	std := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	// start CLI
	cli := commandLine{
		conf: conf,
		log:  logsvc.NewRollbarLogger(std, conf),
		out:  os.Stdout,
	}
	err = cli.run(os.Args)
	cli.close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
}
