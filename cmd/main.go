package main

import (
	"flag"
	"fmt"
	"os"

	"git.nspix.com/golang/kos"
	"github.com/uole/flowio"
	"github.com/uole/flowio/config"
	"github.com/uole/flowio/version"
)

var (
	serviceFlag = flag.Bool("service", false, "Print service template")
	configFlag  = flag.String("config", "", "Configuration file path")
)

func printService() {
	fmt.Println(`
[Unit]
Description= Framed flow relay

[Service]
StartLimitInterval=5
StartLimitBurst=10
ExecStart=/usr/local/bin/flowio
Restart=always
RestartSec=60

[Install]
WantedBy=multi-user.target
`)
}

func main() {
	var (
		err error
	)
	flag.Parse()
	if *serviceFlag {
		printService()
		os.Exit(0)
	}
	cfg := config.New()
	if *configFlag != "" {
		if cfg, err = config.Load(*configFlag); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	svr := kos.Init(
		kos.WithName("github.com/uole/flowio", version.Version),
		kos.WithServer(flowio.New(cfg)),
	)
	if err = svr.Run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
