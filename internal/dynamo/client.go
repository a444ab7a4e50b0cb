// Package dynamo reads and conditionally writes DynamoDB items.
package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// ClientConfig selects credentials and endpoint for the DynamoDB client
type ClientConfig struct {
	Region   string
	Profile  string
	Endpoint string
}

// NewClient creates a DynamoDB client from the default credential chain,
// narrowed by region, shared-config profile and endpoint when given
func NewClient(ctx context.Context, cfg ClientConfig) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// DescribeTableAPI is the part of the DynamoDB client used to read key schema
type DescribeTableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// KeyAttributes returns the table's primary key attribute names, hash key first
func KeyAttributes(ctx context.Context, client DescribeTableAPI, table string) ([]string, error) {
	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("table %s has no description", table)
	}

	var hash, rest []string
	for _, k := range out.Table.KeySchema {
		if k.AttributeName == nil {
			continue
		}
		if k.KeyType == types.KeyTypeHash {
			hash = append(hash, *k.AttributeName)
		} else {
			rest = append(rest, *k.AttributeName)
		}
	}
	return append(hash, rest...), nil
}

// KeyString renders the named attributes of item as compact JSON. With no
// names every top-level attribute name is listed instead.
func KeyString(item rewrite.Item, keys []string) string {
	if len(keys) == 0 {
		names := make([]string, 0, len(item))
		for k := range item {
			names = append(names, k)
		}
		sort.Strings(names)
		b, _ := json.Marshal(names)
		return string(b)
	}

	subset := make(rewrite.Item, len(keys))
	for _, k := range keys {
		if v, ok := item[k]; ok {
			subset[k] = v
		}
	}

	var plain map[string]interface{}
	if err := attributevalue.UnmarshalMap(subset, &plain); err != nil {
		return fmt.Sprintf("<unprintable key: %v>", err)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return fmt.Sprintf("<unprintable key: %v>", err)
	}
	return string(b)
}
