package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
)

// maxBatchWrite is the DynamoDB BatchWriteItem limit
const maxBatchWrite = 25

// DynamoDBArchive implements StatsArchive using AWS DynamoDB
type DynamoDBArchive struct {
	client *dynamodb.Client
	config DynamoConfig
	logger zerolog.Logger
}

// NewArchive returns the archive selected by DYNAMO_MODE
func NewArchive(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (StatsArchive, error) {
	if cfg.Mode == DynamoModeNone {
		logger.Info().Msg("DynamoDB disabled, daily stats are not archived")
		return NewNoopArchive(), nil
	}
	return NewDynamoDBArchive(ctx, cfg, logger)
}

// NewDynamoDBArchive creates a new DynamoDB-backed archive
func NewDynamoDBArchive(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBArchive, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// Static credentials only; LoadDefaultConfig would probe IMDS.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	if cfg.Mode == DynamoModeLocal {
		if err := ensureStatsTable(ctx, client, cfg.DailyStatsTable, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.DailyStatsTable).
		Msg("DynamoDB archive initialized")

	return &DynamoDBArchive{client: client, config: cfg, logger: logger}, nil
}

// SaveDailyStats writes the items in batches of 25, overwriting earlier
// snapshots of the same day and employee.
func (a *DynamoDBArchive) SaveDailyStats(ctx context.Context, stats []types.DailyStats) error {
	for start := 0; start < len(stats); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(stats))

		requests := make([]dbtypes.WriteRequest, 0, end-start)
		for _, s := range stats[start:end] {
			item, err := attributevalue.MarshalMap(s)
			if err != nil {
				return fmt.Errorf("failed to marshal daily stats: %w", err)
			}
			requests = append(requests, dbtypes.WriteRequest{
				PutRequest: &dbtypes.PutRequest{Item: item},
			})
		}

		out, err := a.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]dbtypes.WriteRequest{
				a.config.DailyStatsTable: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to save daily stats: %w", err)
		}
		if left := len(out.UnprocessedItems[a.config.DailyStatsTable]); left > 0 {
			return fmt.Errorf("failed to save daily stats: %d items unprocessed", left)
		}
	}
	return nil
}

// GetDailyStats returns every item archived for the given YYYY-MM-DD day
func (a *DynamoDBArchive) GetDailyStats(ctx context.Context, dateKey string) ([]types.DailyStats, error) {
	keyCond := expression.Key("DateKey").Equal(expression.Value(dateKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(a.client, &dynamodb.QueryInput{
		TableName:                 aws.String(a.config.DailyStatsTable),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var stats []types.DailyStats
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query daily stats: %w", err)
		}
		var items []types.DailyStats
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal daily stats: %w", err)
		}
		stats = append(stats, items...)
	}
	return stats, nil
}
