package ddbstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/acksell/ddbreplicate/dynamodb/table"
)

// Catalog encoding for BadgerDB.
// Key format: [tablePrefix][tableName]
//
// Badger iterates keys in lexicographic order, so a prefix scan over
// tablePrefix yields table names sorted the way ListTables reports them.
// Values are JSON encoded tableRecords.

const tablePrefix = "$table:"

type tableRecord struct {
	Definition table.TableDefinition `json:"definition"`
	CreatedAt  time.Time             `json:"createdAt"`
}

func encodeTableKey(name string) []byte {
	return []byte(tablePrefix + name)
}

func decodeTableKey(key []byte) (string, error) {
	name, ok := strings.CutPrefix(string(key), tablePrefix)
	if !ok {
		return "", fmt.Errorf("key %q is not a table key", key)
	}
	return name, nil
}

func serializeRecord(rec tableRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func deserializeRecord(data []byte) (tableRecord, error) {
	var rec tableRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return tableRecord{}, fmt.Errorf("decode table record: %w", err)
	}
	return rec, nil
}
