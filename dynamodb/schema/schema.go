// Package schema defines the YAML rendition of DynamoDB table schemas.
// `ddb schema` uses it to print what would be replicated without touching the
// local target. The types are pure data structures; conversion from
// table.TableDefinition lives in FromDefinitions.
package schema

import (
	"fmt"
	"io"

	"github.com/acksell/ddbreplicate/dynamodb/table"
	"gopkg.in/yaml.v3"
)

// Schema is the root type containing all table definitions.
type Schema struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

// Table describes a DynamoDB table structure.
type Table struct {
	Name         string      `yaml:"name" json:"name"`
	PartitionKey KeyDef      `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef     `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	Attributes   []KeyDef    `yaml:"attributes" json:"attributes"`
	BillingMode  string      `yaml:"billingMode" json:"billingMode"`
	Throughput   *Throughput `yaml:"throughput,omitempty" json:"throughput,omitempty"`
	GSIs         []GSI       `yaml:"gsis,omitempty" json:"gsis,omitempty"`
	LSIs         []LSI       `yaml:"lsis,omitempty" json:"lsis,omitempty"`
}

// KeyDef describes a key attribute definition.
type KeyDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "S", "N", or "B"
}

// Throughput describes provisioned capacity.
type Throughput struct {
	Read  int64 `yaml:"read" json:"read"`
	Write int64 `yaml:"write" json:"write"`
}

// GSI describes a Global Secondary Index.
type GSI struct {
	Name         string      `yaml:"name" json:"name"`
	PartitionKey KeyDef      `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef     `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	Projection   Projection  `yaml:"projection" json:"projection"`
	Throughput   *Throughput `yaml:"throughput,omitempty" json:"throughput,omitempty"`
}

// LSI describes a Local Secondary Index.
type LSI struct {
	Name       string     `yaml:"name" json:"name"`
	SortKey    KeyDef     `yaml:"sortKey" json:"sortKey"`
	Projection Projection `yaml:"projection" json:"projection"`
}

// Projection describes the attributes copied into an index.
type Projection struct {
	Type             string   `yaml:"type" json:"type"`
	NonKeyAttributes []string `yaml:"nonKeyAttributes,omitempty" json:"nonKeyAttributes,omitempty"`
}

// FromDefinitions converts table definitions, keeping their order.
func FromDefinitions(defs []table.TableDefinition) Schema {
	s := Schema{Tables: make([]Table, 0, len(defs))}
	for _, def := range defs {
		s.Tables = append(s.Tables, fromDefinition(def))
	}
	return s
}

// Write encodes the schema as YAML.
func (s Schema) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return enc.Close()
}

func fromDefinition(def table.TableDefinition) Table {
	t := Table{
		Name:         def.Name,
		PartitionKey: keyDef(def.KeyDefinitions.PartitionKey),
		SortKey:      sortKeyDef(def.KeyDefinitions),
		BillingMode:  string(def.BillingMode),
	}
	if t.BillingMode == "" {
		t.BillingMode = string(table.BillingModeProvisioned)
	}
	for _, attr := range def.Attributes {
		t.Attributes = append(t.Attributes, keyDef(attr))
	}
	provisioned := def.BillingMode != table.BillingModePayPerRequest
	if provisioned {
		t.Throughput = throughput(def.Throughput)
	}
	for _, gsi := range def.GSIs {
		g := GSI{
			Name:         gsi.Name,
			PartitionKey: keyDef(gsi.KeyDefinitions.PartitionKey),
			SortKey:      sortKeyDef(gsi.KeyDefinitions),
			Projection:   projection(gsi.Projection),
		}
		if provisioned {
			g.Throughput = throughput(gsi.Throughput)
		}
		t.GSIs = append(t.GSIs, g)
	}
	for _, lsi := range def.LSIs {
		t.LSIs = append(t.LSIs, LSI{
			Name:       lsi.Name,
			SortKey:    keyDef(lsi.KeyDefinitions.SortKey),
			Projection: projection(lsi.Projection),
		})
	}
	return t
}

func keyDef(k table.KeyDef) KeyDef {
	return KeyDef{Name: k.Name, Kind: string(k.Kind)}
}

func sortKeyDef(k table.PrimaryKeyDefinition) *KeyDef {
	if !k.HasSortKey() {
		return nil
	}
	sk := keyDef(k.SortKey)
	return &sk
}

func throughput(t table.Throughput) *Throughput {
	return &Throughput{Read: t.ReadCapacityUnits, Write: t.WriteCapacityUnits}
}

func projection(p table.ProjectionDefinition) Projection {
	kind := p.Kind
	if kind == "" {
		kind = table.ProjectAll
	}
	return Projection{Type: string(kind), NonKeyAttributes: p.NonKeyAttributes}
}
