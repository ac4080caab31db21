package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/iov-one/docseal/client"
	"github.com/iov-one/docseal/seal/httpkey"
	"github.com/iov-one/docseal/seal/local"
	"github.com/tendermint/tendermint/libs/log"
)

func cmdKeyServer(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Run a standalone key server. Share requests are approved only when the
docseald server accepts the attached authorization proof.

The master secret is a hex encoded 32 byte value. Losing it makes every
share held by this server unrecoverable.
`)
		fl.PrintDefaults()
	}
	var (
		httpFl   = fl.String("http", env("HTTP", ":8100"), "HTTP listen address.")
		secretFl = fl.String("secret", env("KEY_SERVER_SECRET", ""), "Hex encoded master secret. You can use KEY_SERVER_SECRET environment variable to set it.")
		serverFl = fl.String("server", env("DOCSEAL_SERVER", "http://localhost:8000"), "Address of the docseald server.")
	)
	fl.Parse(args)

	master, err := hex.DecodeString(*secretFl)
	if err != nil {
		return fmt.Errorf("secret must be hex encoded: %s", err)
	}
	ledger, err := client.Dial(context.Background(), *serverFl, nil)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %s", *serverFl, err)
	}
	ks, err := local.NewKeyServer(master, client.NewProofGate(ledger))
	if err != nil {
		return err
	}

	logger := log.NewTMLogger(log.NewSyncWriter(os.Stderr)).With("module", "keys")
	logger.Info("key server listening", "addr", *httpFl, "ledger", *serverFl)
	return http.ListenAndServe(*httpFl, httpkey.NewHandler(ks, logger))
}
