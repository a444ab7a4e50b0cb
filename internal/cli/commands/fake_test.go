package commands

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/conduit-lang/dynarename/internal/cli/config"
	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// fakeTable serves a single scan page and records puts
type fakeTable struct {
	items    []rewrite.Item
	scanErr  error
	failAt   int // 1-based put that fails with a conditional check failure; 0 never
	puts     []*dynamodb.PutItemInput
	describe bool
}

func (f *fakeTable) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := &dynamodb.ScanOutput{}
	for _, it := range f.items {
		out.Items = append(out.Items, rewrite.Clone(it))
	}
	return out, nil
}

func (f *fakeTable) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.failAt > 0 && len(f.puts) == f.failAt {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if !f.describe {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no access")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName: in.TableName,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	}}, nil
}

// useFakeTable routes every command in the test to table
func useFakeTable(t *testing.T, table *fakeTable) *int {
	t.Helper()
	calls := 0
	orig := newTableClient
	newTableClient = func(context.Context, config.AWSConfig) (tableAPI, error) {
		calls++
		return table, nil
	}
	t.Cleanup(func() { newTableClient = orig })
	return &calls
}

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func usersTable() *fakeTable {
	return &fakeTable{
		describe: true,
		items: []rewrite.Item{
			{"id": str("1"), "name": str("ann")},
			{"id": str("2"), "email": str("b@example.com")},
			{"id": str("3"), "name": str("cat"), "nick": str("c")},
		},
	}
}
