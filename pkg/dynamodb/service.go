package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vignesh-goutham/drip/pkg/types"
)

type api interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Service journals drip runs in a single table. Nothing read back from it
// feeds into order decisions.
type Service struct {
	client    api
	tableName string
}

// NewService creates a new DynamoDB service instance
func NewService(ctx context.Context, region, tableName string) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}, nil
}

func runPK(accountType types.AccountType) string {
	return "RUN#" + string(accountType)
}

func runSK(record types.RunRecord) string {
	return record.StartedAt.UTC().Format(time.RFC3339Nano) + "#" + record.UUID.String()
}

// toItem wraps a run record into the unified item layout
func toItem(record types.RunRecord) (map[string]dynamodbtypes.AttributeValue, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}

	unifiedItem := types.UnifiedItem{
		PK:        runPK(record.AccountType),
		SK:        runSK(record),
		Type:      types.ItemTypeRun,
		Data:      string(data),
		CreatedAt: record.StartedAt,
		UpdatedAt: record.FinishedAt,
	}

	item, err := attributevalue.MarshalMap(unifiedItem)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return item, nil
}

// SaveRun saves a single run record
func (d *Service) SaveRun(ctx context.Context, record types.RunRecord) error {
	item, err := toItem(record)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	}

	_, err = d.client.PutItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}

	return nil
}

// RecentRuns returns up to limit runs for an account type, newest first
func (d *Service) RecentRuns(ctx context.Context, accountType types.AccountType, limit int32) ([]types.RunRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":pk": &dynamodbtypes.AttributeValueMemberS{Value: runPK(accountType)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}

	result, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []types.RunRecord
	for _, item := range result.Items {
		var unifiedItem types.UnifiedItem
		err := attributevalue.UnmarshalMap(item, &unifiedItem)
		if err != nil || unifiedItem.Type != types.ItemTypeRun {
			continue
		}

		var record types.RunRecord
		if err := json.Unmarshal([]byte(unifiedItem.Data), &record); err == nil {
			runs = append(runs, record)
		}
	}

	return runs, nil
}
