package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// ScanAPI is the part of the DynamoDB client used to read a table
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Source reads every item of a table into memory
type Source struct {
	client  ScanAPI
	table   string
	timeout time.Duration
	logger  *zap.Logger
}

// SourceConfig holds configuration for a Source
type SourceConfig struct {
	// Table is the table name
	Table string
	// Timeout bounds each page request; zero means no limit
	Timeout time.Duration
	// Logger receives per-page debug output (optional)
	Logger *zap.Logger
}

// NewSource creates a new Source
func NewSource(client ScanAPI, config SourceConfig) *Source {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		client:  client,
		table:   config.Table,
		timeout: config.Timeout,
		logger:  logger,
	}
}

// FetchAll scans the table page by page until no continuation key is
// returned. Pages are requested strictly one after another and the whole
// table is held in memory.
func (s *Source) FetchAll(ctx context.Context) ([]rewrite.Item, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})

	var items []rewrite.Item
	page := 0
	for paginator.HasMorePages() {
		out, err := s.nextPage(ctx, paginator)
		if err != nil {
			return nil, &ScanError{Table: s.table, Err: err}
		}
		page++
		items = append(items, out.Items...)

		s.logger.Debug("scanned page",
			zap.String("table", s.table),
			zap.Int("page", page),
			zap.Int("items", len(out.Items)),
			zap.Bool("more", len(out.LastEvaluatedKey) > 0),
		)
	}

	return items, nil
}

func (s *Source) nextPage(ctx context.Context, p *dynamodb.ScanPaginator) (*dynamodb.ScanOutput, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return p.NextPage(ctx)
}
