package docseal

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/tendermint/tendermint/libs/log"
)

// Context carries the execution environment of a transaction: height,
// chain id, block time and logger. Extensions add their own keys, sigs
// stores the verified signers.
type Context = context.Context

type ctxKey int

const (
	heightKey ctxKey = iota
	chainIDKey
	loggerKey
	blockTimeKey
)

// DefaultLogger is returned by GetLogger when none was set.
var DefaultLogger = log.NewNopLogger()

// IsValidChainID accepts 6 to 20 characters of [a-zA-Z0-9_-].
var IsValidChainID = regexp.MustCompile(`^[a-zA-Z0-9_\-]{6,20}$`).MatchString

// WithHeight sets the ledger version the transaction runs against. It
// panics when a height is already set.
func WithHeight(ctx Context, height int64) Context {
	if _, ok := GetHeight(ctx); ok {
		panic("height already set")
	}
	return context.WithValue(ctx, heightKey, height)
}

func GetHeight(ctx Context) (int64, bool) {
	h, ok := ctx.Value(heightKey).(int64)
	return h, ok
}

// WithChainID panics if the chain id is invalid or already set.
func WithChainID(ctx Context, chainID string) Context {
	if _, ok := ctx.Value(chainIDKey).(string); ok {
		panic("chain id already set")
	}
	if !IsValidChainID(chainID) {
		panic(fmt.Sprintf("invalid chain id %q", chainID))
	}
	return context.WithValue(ctx, chainIDKey, chainID)
}

// GetChainID panics when no chain id is set. The ledger always sets one.
func GetChainID(ctx Context) string {
	id, ok := ctx.Value(chainIDKey).(string)
	if !ok {
		panic("no chain id in context")
	}
	return id
}

// WithBlockTime sets the time handlers treat as now.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, blockTimeKey, t)
}

// BlockTime is the time handlers must use instead of the wall clock, so
// that replaying a transaction gives the same result.
func BlockTime(ctx Context) (time.Time, bool) {
	t, ok := ctx.Value(blockTimeKey).(time.Time)
	return t, ok
}

// IsExpired reports whether t is at or before the block time. It panics
// without a block time.
func IsExpired(ctx Context, t UnixTime) bool {
	now, ok := BlockTime(ctx)
	if !ok {
		panic("no block time in context")
	}
	return t <= AsUnixTime(now)
}

func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func GetLogger(ctx Context) log.Logger {
	if l, ok := ctx.Value(loggerKey).(log.Logger); ok {
		return l
	}
	return DefaultLogger
}
