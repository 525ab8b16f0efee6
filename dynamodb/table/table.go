// Package table models the schema of a DynamoDB table: attribute definitions,
// key schema, billing mode, provisioned throughput and secondary indexes.
//
// A TableDefinition is built from a DescribeTable response and turned back into
// a CreateTableInput, which is all schema replication needs.
package table

import (
	"fmt"
)

type TableDefinition struct {
	Name string
	// Attributes are the attribute definitions in the order they were declared.
	Attributes     []KeyDef
	KeyDefinitions PrimaryKeyDefinition
	BillingMode    BillingMode
	// Throughput is only meaningful for BillingModeProvisioned.
	Throughput Throughput
	GSIs       []GSIDefinition
	LSIs       []LSIDefinition
}

type BillingMode string

const (
	BillingModeProvisioned   BillingMode = "PROVISIONED"
	BillingModePayPerRequest BillingMode = "PAY_PER_REQUEST"
)

// Throughput holds provisioned read and write capacity units.
type Throughput struct {
	ReadCapacityUnits  int64
	WriteCapacityUnits int64
}

func (t Throughput) IsZero() bool {
	return t.ReadCapacityUnits == 0 && t.WriteCapacityUnits == 0
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Projection     ProjectionDefinition
	Throughput     Throughput
}

// LSIDefinition represents a Local Secondary Index definition. It shares the
// table's partition key.
type LSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Projection     ProjectionDefinition
}

// AttributeKinds maps each declared attribute name to its kind.
func (t TableDefinition) AttributeKinds() map[string]KeyKind {
	kinds := make(map[string]KeyKind, len(t.Attributes))
	for _, attr := range t.Attributes {
		kinds[attr.Name] = attr.Kind
	}
	return kinds
}

// Validate applies the structural rules DynamoDB enforces on CreateTable.
func (t TableDefinition) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Attributes) == 0 {
		return fmt.Errorf("table %q: attribute definitions are required", t.Name)
	}
	kinds := make(map[string]KeyKind, len(t.Attributes))
	for _, attr := range t.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("table %q: attribute definition has no name", t.Name)
		}
		if !attr.Kind.valid() {
			return fmt.Errorf("table %q: attribute %q has unsupported type %q", t.Name, attr.Name, attr.Kind)
		}
		if _, dup := kinds[attr.Name]; dup {
			return fmt.Errorf("table %q: attribute %q is defined more than once", t.Name, attr.Name)
		}
		kinds[attr.Name] = attr.Kind
	}

	used := make(map[string]bool, len(kinds))
	markUsed := func(owner string, keys PrimaryKeyDefinition) error {
		if keys.PartitionKey.Name == "" {
			return fmt.Errorf("table %q: %s has no partition key", t.Name, owner)
		}
		for _, name := range keys.names() {
			if _, ok := kinds[name]; !ok {
				return fmt.Errorf("table %q: %s key attribute %q has no attribute definition", t.Name, owner, name)
			}
			used[name] = true
		}
		return nil
	}
	if err := markUsed("primary index", t.KeyDefinitions); err != nil {
		return err
	}
	for _, gsi := range t.GSIs {
		if err := markUsed(fmt.Sprintf("index %q", gsi.Name), gsi.KeyDefinitions); err != nil {
			return err
		}
	}
	for _, lsi := range t.LSIs {
		if err := markUsed(fmt.Sprintf("index %q", lsi.Name), lsi.KeyDefinitions); err != nil {
			return err
		}
		if lsi.KeyDefinitions.PartitionKey.Name != t.KeyDefinitions.PartitionKey.Name {
			return fmt.Errorf("table %q: local index %q must use the table partition key", t.Name, lsi.Name)
		}
	}
	for _, attr := range t.Attributes {
		if !used[attr.Name] {
			return fmt.Errorf("table %q: attribute %q is defined but not used by any key schema", t.Name, attr.Name)
		}
	}

	switch t.BillingMode {
	case BillingModePayPerRequest:
	case BillingModeProvisioned, "":
		if t.Throughput.ReadCapacityUnits < 1 || t.Throughput.WriteCapacityUnits < 1 {
			return fmt.Errorf("table %q: provisioned throughput must be at least 1 read and 1 write capacity unit", t.Name)
		}
	default:
		return fmt.Errorf("table %q: unsupported billing mode %q", t.Name, t.BillingMode)
	}
	return nil
}
