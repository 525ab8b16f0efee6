package ddbstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acksell/ddbreplicate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dgraph-io/badger/v4"
)

const (
	// Same account and region DynamoDB Local reports in its ARNs.
	arnPrefix = "arn:aws:dynamodb:ddblocal:000000000000:table/"

	maxListTablesLimit = 100
)

// CreateTable stores a new table definition.
// Returns *types.ResourceInUseException if the table already exists.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	def, err := table.FromCreateInput(params)
	if err != nil {
		return nil, validationError(err.Error())
	}

	rec := tableRecord{Definition: def, CreatedAt: time.Now().UTC()}
	data, err := serializeRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("serialize table: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(encodeTableKey(def.Name))
		if err == nil {
			return tableInUse(def.Name)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(encodeTableKey(def.Name), data)
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.CreateTableOutput{
		TableDescription: describe(rec, types.TableStatusActive),
	}, nil
}

// DescribeTable returns the stored table definition.
// Returns *types.ResourceNotFoundException if the table does not exist.
func (s *Store) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil || aws.ToString(params.TableName) == "" {
		return nil, validationError("table name is required")
	}
	var rec tableRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, aws.ToString(params.TableName))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{
		Table: describe(rec, types.TableStatusActive),
	}, nil
}

// ListTables returns table names in lexicographic order, paginated the same way
// DynamoDB does with ExclusiveStartTableName and LastEvaluatedTableName.
func (s *Store) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if params == nil {
		params = &dynamodb.ListTablesInput{}
	}
	limit := maxListTablesLimit
	if params.Limit != nil {
		if *params.Limit < 1 || *params.Limit > maxListTablesLimit {
			return nil, validationError(fmt.Sprintf("limit must be between 1 and %d", maxListTablesLimit))
		}
		limit = int(*params.Limit)
	}
	start := aws.ToString(params.ExclusiveStartTableName)

	out := &dynamodb.ListTablesOutput{TableNames: []string{}}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(tablePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := opts.Prefix
		if start != "" {
			seek = encodeTableKey(start)
		}
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			name, err := decodeTableKey(it.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			if start != "" && name <= start {
				continue
			}
			if len(out.TableNames) == limit {
				out.LastEvaluatedTableName = aws.String(out.TableNames[limit-1])
				return nil
			}
			out.TableNames = append(out.TableNames, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTable removes a table definition.
func (s *Store) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if params == nil || aws.ToString(params.TableName) == "" {
		return nil, validationError("table name is required")
	}
	name := aws.ToString(params.TableName)
	var rec tableRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, name)
		if err != nil {
			return err
		}
		return txn.Delete(encodeTableKey(name))
	})
	if err != nil {
		return nil, err
	}
	return &dynamodb.DeleteTableOutput{
		TableDescription: describe(rec, types.TableStatusDeleting),
	}, nil
}

func (s *Store) putIfAbsent(def table.TableDefinition) error {
	data, err := serializeRecord(tableRecord{Definition: def, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(encodeTableKey(def.Name))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(encodeTableKey(def.Name), data)
	})
}

func getRecord(txn *badger.Txn, name string) (tableRecord, error) {
	item, err := txn.Get(encodeTableKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return tableRecord{}, tableNotFound(name)
	}
	if err != nil {
		return tableRecord{}, err
	}
	var rec tableRecord
	err = item.Value(func(val []byte) error {
		rec, err = deserializeRecord(val)
		return err
	})
	return rec, err
}

func describe(rec tableRecord, status types.TableStatus) *types.TableDescription {
	desc := rec.Definition.Description()
	desc.TableStatus = status
	desc.TableArn = aws.String(arnPrefix + rec.Definition.Name)
	desc.CreationDateTime = aws.Time(rec.CreatedAt)
	return desc
}

func validationError(msg string) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: msg,
		Fault:   smithy.FaultClient,
	}
}

func tableInUse(name string) error {
	return &types.ResourceInUseException{
		Message: aws.String(fmt.Sprintf("Cannot create preexisting table: %s", name)),
	}
}

func tableNotFound(name string) error {
	return &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Cannot do operations on a non-existent table: %s", name)),
	}
}
