package dynamo

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// fakeTable is an in-memory table keyed by the "id" string attribute. Scan
// pages are pageSize items long; PutItem evaluates the "#aN = :aN AND ..."
// conditions produced by BuildCondition against the stored item.
type fakeTable struct {
	items    []rewrite.Item
	pageSize int

	scanErr    error
	scanErrAt  int
	scanCalls  int
	startKeys  []rewrite.Item
	putErr     error
	putInputs  []*dynamodb.PutItemInput
	conditions []string
}

func (f *fakeTable) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.scanCalls++
	f.startKeys = append(f.startKeys, in.ExclusiveStartKey)
	if f.scanErr != nil && f.scanCalls >= f.scanErrAt {
		return nil, f.scanErr
	}

	offset := 0
	if in.ExclusiveStartKey != nil {
		offset, _ = strconv.Atoi(in.ExclusiveStartKey["offset"].(*types.AttributeValueMemberN).Value)
	}
	size := f.pageSize
	if size <= 0 {
		size = len(f.items)
	}
	end := offset + size
	if end > len(f.items) {
		end = len(f.items)
	}

	out := &dynamodb.ScanOutput{}
	for _, it := range f.items[offset:end] {
		out.Items = append(out.Items, rewrite.Clone(it))
	}
	if end < len(f.items) {
		out.LastEvaluatedKey = rewrite.Item{
			"offset": &types.AttributeValueMemberN{Value: strconv.Itoa(end)},
		}
	}
	return out, nil
}

func (f *fakeTable) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.putInputs = append(f.putInputs, in)
	if f.putErr != nil {
		return nil, f.putErr
	}

	id := in.Item["id"]
	idx := -1
	for i, it := range f.items {
		if reflect.DeepEqual(it["id"], id) {
			idx = i
			break
		}
	}

	if in.ConditionExpression != nil {
		f.conditions = append(f.conditions, *in.ConditionExpression)
		if idx < 0 || !f.conditionHolds(f.items[idx], in) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}

	if idx < 0 {
		f.items = append(f.items, rewrite.Clone(in.Item))
	} else {
		f.items[idx] = rewrite.Clone(in.Item)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) conditionHolds(stored rewrite.Item, in *dynamodb.PutItemInput) bool {
	for _, clause := range strings.Split(*in.ConditionExpression, " AND ") {
		name, value, ok := strings.Cut(clause, " = ")
		if !ok {
			return false
		}
		current, exists := stored[in.ExpressionAttributeNames[name]]
		if !exists || !reflect.DeepEqual(current, in.ExpressionAttributeValues[value]) {
			return false
		}
	}
	return true
}

type fakeDescribe struct {
	keys []types.KeySchemaElement
	err  error
}

func (f *fakeDescribe) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableName: in.TableName, KeySchema: f.keys},
	}, nil
}

var errRemote = errors.New("ProvisionedThroughputExceededException: slow down")
