package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/blob/httpblob"
	"github.com/iov-one/docseal/client"
	"github.com/iov-one/docseal/seal/httpkey"
	"github.com/iov-one/docseal/seal/local"
	"github.com/iov-one/docseal/store/iavl"
	"github.com/iov-one/docseal/workflow"
	"github.com/tendermint/tendermint/libs/log"
)

// env returns the value of an environment variable if provided (even if
// empty) or a fallback value.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// remoteFlags are shared by all commands talking to a docseald server.
type remoteFlags struct {
	server     *string
	keyServers *string
	threshold  *int
	progress   *string
	timeout    *time.Duration
	verbose    *bool
}

func addRemoteFlags(fl *flag.FlagSet) remoteFlags {
	return remoteFlags{
		server: fl.String("server", env("DOCSEAL_SERVER", "http://localhost:8000"),
			"Address of the docseald server. You can use DOCSEAL_SERVER environment variable to set it."),
		keyServers: fl.String("key-servers", env("DOCSEAL_KEY_SERVERS", ""),
			"Comma separated key server addresses. The order must never change. Defaults to the key server of docseald."),
		threshold: fl.Int("threshold", 0, "Number of key servers required to decrypt. Defaults to a majority."),
		progress: fl.String("progress", env("DOCSEAL_PROGRESS", filepath.Join(os.Getenv("HOME"), ".docseal", "progress")),
			"Directory where saga progress is kept."),
		timeout: fl.Duration("timeout", 2*time.Minute, "Time limit of the whole operation."),
		verbose: fl.Bool("v", false, "Log every stage."),
	}
}

// session holds everything a command needs to run sagas.
type session struct {
	client *client.Client
	orch   *workflow.Orchestrator
	close  func()
}

func (f remoteFlags) open(ctx context.Context) (*session, error) {
	c, err := client.Dial(ctx, *f.server, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %s", *f.server, err)
	}

	urls := splitList(*f.keyServers)
	if len(urls) == 0 {
		urls = []string{strings.TrimRight(*f.server, "/") + "/keys"}
	}
	members := make([]local.ShareServer, len(urls))
	for i, u := range urls {
		members[i] = httpkey.NewClient(u, nil)
	}
	threshold := *f.threshold
	if threshold == 0 {
		threshold = len(members)/2 + 1
	}

	if err := os.MkdirAll(*f.progress, 0700); err != nil {
		return nil, fmt.Errorf("progress directory: %s", err)
	}
	db, err := iavl.NewCommitStore(*f.progress, "sagas")
	if err != nil {
		return nil, err
	}
	progress, err := workflow.NewProgressStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger := log.NewFilter(log.NewTMLogger(log.NewSyncWriter(os.Stderr)), log.AllowError())
	if *f.verbose {
		logger = log.NewTMLogger(log.NewSyncWriter(os.Stderr))
	}
	orch := workflow.NewOrchestrator(
		c,
		httpblob.NewClient(*f.server, *f.server, nil),
		local.NewCommittee(members...),
		progress,
		workflow.Config{Threshold: threshold},
		workflow.WithLogger(logger),
	)
	return &session{client: c, orch: orch, close: db.Close}, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseAddresses(s string) ([]docseal.Address, error) {
	var addrs []docseal.Address
	for _, v := range splitList(s) {
		a, err := docseal.ParseAddress(v)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %s", v, err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func parseID(name, s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("-%s is required", name)
	}
	id, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("-%s must be hex encoded: %s", name, err)
	}
	return id, nil
}

// readContent reads the file at path, or the input when path is empty.
func readContent(input io.Reader, path string) ([]byte, error) {
	if path == "" {
		return ioutil.ReadAll(input)
	}
	return ioutil.ReadFile(path)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	return enc.Encode(v)
}
