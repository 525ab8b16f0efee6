package ddbstore

import (
	"fmt"

	"github.com/acksell/ddbreplicate/dynamodb/ddbiface"
	"github.com/acksell/ddbreplicate/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var _ ddbiface.SchemaClient = (*Store)(nil)

// Store is a DynamoDB-compatible table catalog backed by BadgerDB.
// It implements the table management operations used as a replication
// target: CreateTable, DescribeTable, ListTables and DeleteTable.
type Store struct {
	db *badger.DB
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New creates a new BadgerDB-backed store. Tables in defs are created unless a
// table with the same name already exists in the database.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{db: db}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed table: %w", err)
		}
		if err := s.putIfAbsent(def); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed table %q: %w", def.Name, err)
		}
	}
	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ZapLogger adapts a zap logger to the badger.Logger interface.
func ZapLogger(l *zap.Logger) badger.Logger {
	return badgerLogger{l.Named("badger").Sugar()}
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
