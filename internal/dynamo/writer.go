package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// PutItemAPI is the part of the DynamoDB client used to write items
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Condition is an equality guard over every attribute of the item as it was
// read. Attribute names and values are bound through indexed placeholders
// (#a0/:a0, #a1/:a1, ...) so reserved words and odd characters in names are
// never spliced into the expression.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// Empty reports whether the condition has no clauses
func (c Condition) Empty() bool {
	return c.Expression == ""
}

// BuildCondition builds the guard for original. Attributes are bound in
// sorted name order. An item with no attributes yields an empty condition.
func BuildCondition(original rewrite.Item) Condition {
	if len(original) == 0 {
		return Condition{}
	}

	keys := make([]string, 0, len(original))
	for k := range original {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := Condition{
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	clauses := make([]string, len(keys))
	for i, k := range keys {
		name := fmt.Sprintf("#a%d", i)
		value := fmt.Sprintf(":a%d", i)
		clauses[i] = name + " = " + value
		c.Names[name] = k
		c.Values[value] = original[k]
	}
	c.Expression = strings.Join(clauses, " AND ")

	return c
}

// Writer puts rewritten items back, guarded by their original values
type Writer struct {
	client  PutItemAPI
	table   string
	timeout time.Duration
	logger  *zap.Logger
}

// WriterConfig holds configuration for a Writer
type WriterConfig struct {
	// Table is the table name
	Table string
	// Timeout bounds each put; zero means no limit
	Timeout time.Duration
	// Logger receives per-put debug output (optional)
	Logger *zap.Logger
}

// NewWriter creates a new Writer
func NewWriter(client PutItemAPI, config WriterConfig) *Writer {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		client:  client,
		table:   config.Table,
		timeout: config.Timeout,
		logger:  logger,
	}
}

// PutInput builds the conditional put request for a rewritten item
func (w *Writer) PutInput(original, mutated rewrite.Item) *dynamodb.PutItemInput {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(w.table),
		Item:      mutated,
	}

	cond := BuildCondition(original)
	if !cond.Empty() {
		input.ConditionExpression = aws.String(cond.Expression)
		input.ExpressionAttributeNames = cond.Names
		input.ExpressionAttributeValues = cond.Values
	}

	return input
}

// Put writes mutated in place of original. It returns an error wrapping
// ErrConflict if the stored item changed since it was read.
func (w *Writer) Put(ctx context.Context, original, mutated rewrite.Item) error {
	input := w.PutInput(original, mutated)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.logger.Debug("putting item",
		zap.String("table", w.table),
		zap.Int("guarded_attributes", len(input.ExpressionAttributeNames)),
	)

	if _, err := w.client.PutItem(ctx, input); err != nil {
		return ConvertError(err)
	}
	return nil
}
