package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTables struct {
	describeErr error
	createErr   error
	created     []*dynamodb.CreateTableInput
}

func (f *fakeTables) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &dynamodb.DescribeTableOutput{Table: &dbtypes.TableDescription{TableStatus: dbtypes.TableStatusActive}}, nil
}

func (f *fakeTables) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &dynamodb.CreateTableOutput{TableDescription: &dbtypes.TableDescription{
		TableName:   in.TableName,
		TableStatus: dbtypes.TableStatusActive,
	}}, nil
}

func TestEnsureStatsTable(t *testing.T) {
	ctx := context.Background()

	t.Run("existing table is left alone", func(t *testing.T) {
		f := &fakeTables{}
		require.NoError(t, ensureStatsTable(ctx, f, "stats", zerolog.Nop()))
		assert.Empty(t, f.created)
	})

	t.Run("missing table is created", func(t *testing.T) {
		f := &fakeTables{describeErr: &dbtypes.ResourceNotFoundException{Message: aws.String("no table")}}
		require.NoError(t, ensureStatsTable(ctx, f, "stats", zerolog.Nop()))
		require.Len(t, f.created, 1)

		in := f.created[0]
		assert.Equal(t, "stats", aws.ToString(in.TableName))
		assert.Equal(t, "DateKey", aws.ToString(in.KeySchema[0].AttributeName))
		assert.Equal(t, dbtypes.KeyTypeHash, in.KeySchema[0].KeyType)
		assert.Equal(t, "EmployeeKey", aws.ToString(in.KeySchema[1].AttributeName))
		assert.Equal(t, dbtypes.KeyTypeRange, in.KeySchema[1].KeyType)
	})

	t.Run("lost creation race is not an error", func(t *testing.T) {
		f := &fakeTables{
			describeErr: &dbtypes.ResourceNotFoundException{},
			createErr:   &dbtypes.ResourceInUseException{},
		}
		assert.NoError(t, ensureStatsTable(ctx, f, "stats", zerolog.Nop()))
	})

	t.Run("describe failure propagates", func(t *testing.T) {
		f := &fakeTables{describeErr: errors.New("connection refused")}
		err := ensureStatsTable(ctx, f, "stats", zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Empty(t, f.created)
	})
}
