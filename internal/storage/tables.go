package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// tableAPI is the part of the DynamoDB client used to provision tables
type tableAPI interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

const tableReadyTimeout = 2 * time.Minute

// ensureStatsTable creates the daily stats table (pk DateKey, sk EmployeeKey)
// when it is missing. Only used against DynamoDB Local; in AWS the table is
// provisioned out of band.
func ensureStatsTable(ctx context.Context, client tableAPI, table string, logger zerolog.Logger) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		logger.Debug().Str("table", table).Msg("stats table present")
		return nil
	}
	var missing *dbtypes.ResourceNotFoundException
	if !errors.As(err, &missing) {
		return fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	out, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String("DateKey"), KeyType: dbtypes.KeyTypeHash},
			{AttributeName: aws.String("EmployeeKey"), KeyType: dbtypes.KeyTypeRange},
		},
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String("DateKey"), AttributeType: dbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("EmployeeKey"), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *dbtypes.ResourceInUseException
		if errors.As(err, &inUse) {
			// another instance created it first
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	if out.TableDescription == nil || out.TableDescription.TableStatus != dbtypes.TableStatusActive {
		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, tableReadyTimeout); err != nil {
			return fmt.Errorf("table %s not ready: %w", table, err)
		}
	}

	logger.Info().Str("table", table).Msg("stats table created")
	return nil
}
