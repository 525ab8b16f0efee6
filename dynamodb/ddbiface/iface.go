// Package ddbiface provides the table-level interfaces used for schema
// replication. They are satisfied by both the AWS SDK v2 DynamoDB client and by
// ddbstore.Store, allowing the replicator to target either a real DynamoDB
// endpoint (AWS or DynamoDB Local) or local BadgerDB-backed storage.
package ddbiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// TableDescriber reads a table's schema.
type TableDescriber interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// SchemaClient is the set of table management operations a replication
// target must support. It mirrors the method signatures of the AWS SDK v2
// *dynamodb.Client.
type SchemaClient interface {
	TableDescriber
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

var (
	_ TableDescriber = (*dynamodb.Client)(nil)
	_ SchemaClient   = (*dynamodb.Client)(nil)
)
