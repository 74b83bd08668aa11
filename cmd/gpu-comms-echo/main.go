// Command gpu-comms-echo runs the reference test server collaborator as
// a standalone process, for manual smoke-testing against a real client
// binary. It is not part of the comms-core API.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gpulayers/device-comms/internal/logging"
	"github.com/gpulayers/device-comms/internal/testserver"
)

func main() {
	uds := flag.String("uds", "", "Abstract-namespace UDS name to listen on (mutually exclusive with -port)")
	port := flag.Int("port", 0, "TCP port to listen on (0 picks a free port)")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	flag.Parse()

	l := logging.New(*logFormat, nil, os.Stderr).With("app", "gpu-comms-echo")
	logging.Set(l)

	var (
		srv *testserver.Server
		err error
	)
	switch {
	case *uds != "":
		srv, err = testserver.ListenUDS(*uds)
	default:
		srv, err = testserver.ListenTCP(*port)
	}
	if err != nil {
		l.Error("listen_failed", "error", err)
		os.Exit(1)
	}

	if *uds == "" {
		addr, _ := srv.Addr()
		l.Info("listening", "addr", addr)
		fmt.Println(addr)
	} else {
		l.Info("listening", "uds", *uds)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	srv.Stop()
	for _, m := range srv.Received() {
		l.Info("received", "endpoint", m.Endpoint, "kind", m.Kind.String(), "len", len(m.Payload))
	}
}
