package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/app"
	"github.com/iov-one/docseal/blob"
	"github.com/iov-one/docseal/blob/httpblob"
	"github.com/iov-one/docseal/blob/pgblob"
	"github.com/iov-one/docseal/cmd/docseald/handlers"
	"github.com/iov-one/docseal/notify"
	"github.com/iov-one/docseal/seal/httpkey"
	"github.com/iov-one/docseal/seal/local"
	"github.com/iov-one/docseal/store/iavl"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendermint/tendermint/libs/log"
)

type configuration struct {
	Home      string
	HTTP      string
	ChainID   string
	Genesis   string
	LogLevel  string
	Debug     bool
	Database  string
	KeySecret string
}

func main() {
	var conf configuration
	flag.StringVar(&conf.Home, "home", env("DOCSEAL_HOME", ""), "State directory. State is kept in memory when empty.")
	flag.StringVar(&conf.HTTP, "http", env("HTTP", ":8000"), "HTTP listen address.")
	flag.StringVar(&conf.ChainID, "chain-id", env("CHAIN_ID", "docseal-local"), "Chain id of a new ledger.")
	flag.StringVar(&conf.Genesis, "genesis", env("GENESIS", ""), "Genesis file of a new ledger.")
	flag.StringVar(&conf.LogLevel, "log-level", env("LOG_LEVEL", "info"), "One of debug, info, error, none.")
	flag.BoolVar(&conf.Debug, "debug", false, "Expose internal error messages.")
	flag.Parse()
	conf.Database = env("DATABASE_URL", "")
	conf.KeySecret = env("KEY_SERVER_SECRET", "")

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(conf, logger); err != nil {
		logger.Error("docseald failed", "err", err)
		os.Exit(1)
	}
}

func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

func newLogger(level string) (log.Logger, error) {
	allow, err := log.AllowLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewFilter(log.NewTMLogger(log.NewSyncWriter(os.Stdout)), allow), nil
}

func run(conf configuration, logger log.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := openState(conf.Home)
	if err != nil {
		return err
	}
	ledger, err := app.NewLedger(db, app.Stack(),
		app.WithLogger(logger.With("module", "ledger")),
		app.WithPublisher(notify.LogPublisher{Logger: logger.With("module", "notify")}),
	)
	if err != nil {
		return fmt.Errorf("ledger: %s", err)
	}
	if ledger.ChainID() == "" {
		if err := initChain(ledger, conf); err != nil {
			return err
		}
		logger.Info("ledger initialized", "chain_id", ledger.ChainID())
	}

	blobs, err := openBlobs(ctx, conf.Database)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	if err := ledger.RegisterMetrics(reg); err != nil {
		return err
	}

	rt := handlers.NewRouter(ledger, logger.With("module", "api"), conf.Debug)
	httpblob.NewHandler(blobs, logger.With("module", "blob")).Routes(rt)
	if conf.KeySecret != "" {
		master, err := hex.DecodeString(conf.KeySecret)
		if err != nil {
			return fmt.Errorf("key server secret must be hex encoded")
		}
		ks, err := local.NewKeyServer(master, app.NewProofGate(ledger))
		if err != nil {
			return fmt.Errorf("key server: %s", err)
		}
		rt.Mount("/keys", httpkey.NewHandler(ks, logger.With("module", "keys")))
	}
	rt.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := ledger.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("outbox relay stopped", "err", err)
		}
	}()

	srv := &http.Server{Addr: conf.HTTP, Handler: rt}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", conf.HTTP)

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %s", err)
	case <-ctx.Done():
	}

	shutdown, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return srv.Shutdown(shutdown)
}

func openState(home string) (docseal.CommitKVStore, error) {
	if home == "" {
		return iavl.NewMemCommitStore(), nil
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, fmt.Errorf("state directory: %s", err)
	}
	db, err := iavl.NewCommitStore(filepath.Join(home, "data"), "docseal")
	if err != nil {
		return nil, err
	}
	return db, nil
}

func initChain(ledger *app.Ledger, conf configuration) error {
	gen := &app.Genesis{ChainID: conf.ChainID}
	if conf.Genesis != "" {
		var err error
		if gen, err = app.LoadGenesis(conf.Genesis); err != nil {
			return fmt.Errorf("genesis: %s", err)
		}
	}
	if err := ledger.InitChain(gen, app.Initializers()); err != nil {
		return fmt.Errorf("init chain: %s", err)
	}
	return nil
}

func openBlobs(ctx context.Context, dsn string) (blob.Store, error) {
	if dsn == "" {
		return blob.NewMemStore(), nil
	}
	pool, err := pgblob.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := pgblob.NewStore(pool)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
