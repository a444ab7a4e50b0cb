package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/dynarename/internal/apply"
	"github.com/conduit-lang/dynarename/internal/cli/config"
	"github.com/conduit-lang/dynarename/internal/cli/ui"
	"github.com/conduit-lang/dynarename/internal/dynamo"
	"github.com/conduit-lang/dynarename/internal/journal"
	"github.com/conduit-lang/dynarename/internal/lock"
)

// tableAPI is every DynamoDB call the commands make
type tableAPI interface {
	dynamo.ScanAPI
	dynamo.PutItemAPI
	dynamo.DescribeTableAPI
}

// newTableClient is replaced in tests
var newTableClient = func(ctx context.Context, cfg config.AWSConfig) (tableAPI, error) {
	return dynamo.NewClient(ctx, dynamo.ClientConfig{
		Region:   cfg.Region,
		Profile:  cfg.Profile,
		Endpoint: cfg.Endpoint,
	})
}

var _ tableAPI = (*dynamodb.Client)(nil)

// newRedisClient is replaced in tests
var newRedisClient = func(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// keyAttributes looks up the table key so items can be named in output.
// Without DescribeTable permission items are named by their attribute names.
func keyAttributes(ctx context.Context, client dynamo.DescribeTableAPI, table string, logger *zap.Logger) []string {
	keys, err := dynamo.KeyAttributes(ctx, client, table)
	if err != nil {
		logger.Debug("key schema unavailable", zap.String("table", table), zap.Error(err))
		return nil
	}
	return keys
}

// openJournal opens and prepares the configured journal
func openJournal(ctx context.Context, cfg config.JournalConfig) (*journal.Journal, error) {
	j, err := journal.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := j.Initialize(ctx); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

// newLockFunc returns a session lock backed by Redis, plus a closer for the client
func newLockFunc(cfg config.LockConfig, table, token string, logger *zap.Logger) (apply.LockFunc, func() error, error) {
	client := newRedisClient(cfg.RedisAddr)

	rc := lock.DefaultRedisConfig(client)
	rc.TTL = cfg.TTL
	locker, err := lock.NewRedisLocker(rc)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	fn := func(ctx context.Context) (func(context.Context) error, error) {
		held, err := locker.Acquire(ctx, table, token)
		if err != nil {
			return nil, err
		}
		logger.Info("lock acquired", zap.String("table", table), zap.String("token", token))
		return held.Release, nil
	}
	return fn, locker.Close, nil
}

// newConfirmer uses the process terminal when in is a file
func newConfirmer(in io.Reader, out io.Writer, assumeYes bool) apply.Confirmer {
	if assumeYes {
		return ui.AutoConfirmer{}
	}
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK {
		return ui.NewConfirmer(inFile, outFile, false)
	}
	return ui.NewLineConfirmer(in, out)
}

// isInteractive reports whether w is a terminal
func isInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.IsInteractive(f)
}

func closeQuietly(name string, closeFn func() error, logger *zap.Logger) {
	if err := closeFn(); err != nil {
		logger.Warn(fmt.Sprintf("failed to close %s", name), zap.Error(err))
	}
}
