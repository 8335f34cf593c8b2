// Package repository tracks which (submission, link) pairs have already been
// processed, so retried chat events do not score or publish a link twice.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefixSub  = "SUB#"
	skPrefixLink = "LINK#"
	ttlDuration  = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Registry.
// *dynamodb.Client from aws-sdk-go-v2 satisfies this interface.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Registry wraps a DynamoDB table recording processed submission links.
type Registry struct {
	api       dynamodbAPI
	tableName string
}

// New creates a Registry over the given table.
func New(api dynamodbAPI, tableName string) (*Registry, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Registry{api: api, tableName: tableName}, nil
}

func subPK(submissionID string) string {
	return pkPrefixSub + submissionID
}

func linkSK(link string) string {
	return skPrefixLink + link
}

// ttlValue returns a Unix timestamp 30 days out; retried gateway events
// arrive well inside that window.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// Seen reports whether the (submissionID, link) pair was already processed.
func (r *Registry) Seen(ctx context.Context, submissionID, link string) (bool, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: subPK(submissionID)},
			"SK": &types.AttributeValueMemberS{Value: linkSK(link)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("repository: Seen get item: %w", err)
	}
	return out != nil && len(out.Item) > 0, nil
}

// MarkProcessed records the pair and its outcome. A pair that is already
// recorded is not an error; the first record wins.
func (r *Registry) MarkProcessed(ctx context.Context, submissionID, link string, accepted bool) error {
	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"PK":          &types.AttributeValueMemberS{Value: subPK(submissionID)},
			"SK":          &types.AttributeValueMemberS{Value: linkSK(link)},
			"accepted":    &types.AttributeValueMemberBOOL{Value: accepted},
			"processedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			"ttl":         &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil
		}
		return fmt.Errorf("repository: MarkProcessed: %w", err)
	}
	return nil
}
