// Command gpu-comms-demo is a minimal client exercising tx_async, tx, and
// tx_rx against a running gpu-comms-echo (or any compatible host), for
// manual smoke-testing. It is not part of the comms-core API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gpulayers/device-comms/comms"
	"github.com/gpulayers/device-comms/internal/discovery"
	"github.com/gpulayers/device-comms/internal/logging"
)

func main() {
	uds := flag.String("uds", "", "Abstract-namespace UDS name to connect to")
	host := flag.String("host", "", "TCP host to connect to (mutually exclusive with -uds)")
	port := flag.Int("port", 0, "TCP port to connect to")
	discover := flag.Bool("discover", false, "Browse mDNS for a host tool instead of using -host/-port")
	endpoint := flag.Int("endpoint", 1, "Destination endpoint for the demo payload")
	payload := flag.String("payload", "abcd", "Payload to send")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	flag.Parse()

	l := logging.New(*logFormat, nil, os.Stderr).With("app", "gpu-comms-demo")
	logging.Set(l)

	if *discover {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h, p, err := discovery.Find(ctx, discovery.DefaultServiceType)
		if err != nil {
			l.Error("discover_failed", "error", err)
			os.Exit(1)
		}
		l.Info("discovered_host", "host", h, "port", p)
		*host, *port = h, p
	}

	var (
		m   *comms.Module
		err error
	)
	switch {
	case *uds != "":
		m, err = comms.NewUDS(*uds)
	default:
		m, err = comms.NewTCP(*host, uint16(*port))
	}
	if err != nil {
		l.Error("connect_failed", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if !m.IsConnected() {
		l.Warn("not_connected", "note", "sends are silent no-ops")
	}

	ep := uint8(*endpoint)
	m.TxAsync(ep, []byte(*payload))
	m.Tx(ep, []byte(*payload))
	resp := m.TxRx(ep, []byte(*payload))
	fmt.Printf("tx_rx response: %q\n", resp)
}
