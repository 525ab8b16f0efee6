package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef // zero value means the table has no sort key
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

func (k KeyKind) valid() bool {
	switch k {
	case KeyKindS, KeyKindN, KeyKindB:
		return true
	default:
		return false
	}
}

// HasSortKey reports whether the key definition includes a RANGE key.
func (k PrimaryKeyDefinition) HasSortKey() bool {
	return k.SortKey.Name != ""
}

// KeySchema returns the key schema in the order DynamoDB expects it, HASH first.
func (k PrimaryKeyDefinition) KeySchema() []types.KeySchemaElement {
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(k.PartitionKey.Name), KeyType: types.KeyTypeHash},
	}
	if k.HasSortKey() {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(k.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return schema
}

// names returns the attribute names referenced by the key.
func (k PrimaryKeyDefinition) names() []string {
	if k.HasSortKey() {
		return []string{k.PartitionKey.Name, k.SortKey.Name}
	}
	return []string{k.PartitionKey.Name}
}

// keyDefinitionFromSchema resolves a key schema against the attribute kinds
// declared for the table. Exactly one HASH element is required and at most one
// RANGE element is allowed.
func keyDefinitionFromSchema(schema []types.KeySchemaElement, kinds map[string]KeyKind) (PrimaryKeyDefinition, error) {
	var def PrimaryKeyDefinition
	for _, el := range schema {
		name := aws.ToString(el.AttributeName)
		if name == "" {
			return PrimaryKeyDefinition{}, fmt.Errorf("key schema element has no attribute name")
		}
		kind, ok := kinds[name]
		if !ok {
			return PrimaryKeyDefinition{}, fmt.Errorf("key attribute %q has no attribute definition", name)
		}
		switch el.KeyType {
		case types.KeyTypeHash:
			if def.PartitionKey.Name != "" {
				return PrimaryKeyDefinition{}, fmt.Errorf("key schema has more than one HASH key")
			}
			def.PartitionKey = KeyDef{Name: name, Kind: kind}
		case types.KeyTypeRange:
			if def.SortKey.Name != "" {
				return PrimaryKeyDefinition{}, fmt.Errorf("key schema has more than one RANGE key")
			}
			def.SortKey = KeyDef{Name: name, Kind: kind}
		default:
			return PrimaryKeyDefinition{}, fmt.Errorf("unsupported key type %q for attribute %q", el.KeyType, name)
		}
	}
	if def.PartitionKey.Name == "" {
		return PrimaryKeyDefinition{}, fmt.Errorf("key schema has no HASH key")
	}
	return def, nil
}
