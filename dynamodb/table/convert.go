package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FromDescription builds a TableDefinition from a DescribeTable response.
//
// Tables billed on demand report zero provisioned throughput; they are mapped
// to BillingModePayPerRequest so that the definition can be recreated.
func FromDescription(desc *types.TableDescription) (TableDefinition, error) {
	if desc == nil {
		return TableDefinition{}, fmt.Errorf("table description is nil")
	}
	def := TableDefinition{
		Name:        aws.ToString(desc.TableName),
		Attributes:  attributesFromSDK(desc.AttributeDefinitions),
		BillingMode: BillingModeProvisioned,
	}
	kinds := def.AttributeKinds()

	keys, err := keyDefinitionFromSchema(desc.KeySchema, kinds)
	if err != nil {
		return TableDefinition{}, fmt.Errorf("table %q: %w", def.Name, err)
	}
	def.KeyDefinitions = keys

	if desc.BillingModeSummary != nil && desc.BillingModeSummary.BillingMode == types.BillingModePayPerRequest {
		def.BillingMode = BillingModePayPerRequest
	} else {
		def.Throughput = throughputFromDescription(desc.ProvisionedThroughput)
	}

	for _, gsi := range desc.GlobalSecondaryIndexes {
		name := aws.ToString(gsi.IndexName)
		keys, err := keyDefinitionFromSchema(gsi.KeySchema, kinds)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("table %q index %q: %w", def.Name, name, err)
		}
		gsiDef := GSIDefinition{
			Name:           name,
			KeyDefinitions: keys,
			Projection:     projectionFromSDK(gsi.Projection),
		}
		if def.BillingMode == BillingModeProvisioned {
			gsiDef.Throughput = throughputFromDescription(gsi.ProvisionedThroughput)
		}
		def.GSIs = append(def.GSIs, gsiDef)
	}
	for _, lsi := range desc.LocalSecondaryIndexes {
		name := aws.ToString(lsi.IndexName)
		keys, err := keyDefinitionFromSchema(lsi.KeySchema, kinds)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("table %q index %q: %w", def.Name, name, err)
		}
		def.LSIs = append(def.LSIs, LSIDefinition{
			Name:           name,
			KeyDefinitions: keys,
			Projection:     projectionFromSDK(lsi.Projection),
		})
	}
	return def, nil
}

// FromCreateInput builds and validates a TableDefinition from a CreateTable request.
func FromCreateInput(in *dynamodb.CreateTableInput) (TableDefinition, error) {
	if in == nil {
		return TableDefinition{}, fmt.Errorf("params is required")
	}
	def := TableDefinition{
		Name:        aws.ToString(in.TableName),
		Attributes:  attributesFromSDK(in.AttributeDefinitions),
		BillingMode: BillingModeProvisioned,
	}
	if in.BillingMode == types.BillingModePayPerRequest {
		def.BillingMode = BillingModePayPerRequest
		if in.ProvisionedThroughput != nil {
			return TableDefinition{}, fmt.Errorf("table %q: provisioned throughput is not allowed with PAY_PER_REQUEST billing", def.Name)
		}
	} else if in.ProvisionedThroughput == nil {
		return TableDefinition{}, fmt.Errorf("table %q: provisioned throughput is required with PROVISIONED billing", def.Name)
	} else {
		def.Throughput = throughputFromSDK(in.ProvisionedThroughput)
	}
	kinds := def.AttributeKinds()

	keys, err := keyDefinitionFromSchema(in.KeySchema, kinds)
	if err != nil {
		return TableDefinition{}, fmt.Errorf("table %q: %w", def.Name, err)
	}
	def.KeyDefinitions = keys

	for _, gsi := range in.GlobalSecondaryIndexes {
		name := aws.ToString(gsi.IndexName)
		keys, err := keyDefinitionFromSchema(gsi.KeySchema, kinds)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("table %q index %q: %w", def.Name, name, err)
		}
		def.GSIs = append(def.GSIs, GSIDefinition{
			Name:           name,
			KeyDefinitions: keys,
			Projection:     projectionFromSDK(gsi.Projection),
			Throughput:     throughputFromSDK(gsi.ProvisionedThroughput),
		})
	}
	for _, lsi := range in.LocalSecondaryIndexes {
		name := aws.ToString(lsi.IndexName)
		keys, err := keyDefinitionFromSchema(lsi.KeySchema, kinds)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("table %q index %q: %w", def.Name, name, err)
		}
		def.LSIs = append(def.LSIs, LSIDefinition{
			Name:           name,
			KeyDefinitions: keys,
			Projection:     projectionFromSDK(lsi.Projection),
		})
	}

	if err := def.Validate(); err != nil {
		return TableDefinition{}, err
	}
	return def, nil
}

// CreateTableInput returns the request that recreates this table.
func (t TableDefinition) CreateTableInput() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		AttributeDefinitions: t.attributeDefinitions(),
		KeySchema:            t.KeyDefinitions.KeySchema(),
	}
	provisioned := t.BillingMode != BillingModePayPerRequest
	if provisioned {
		in.ProvisionedThroughput = t.Throughput.sdk()
	} else {
		in.BillingMode = types.BillingModePayPerRequest
	}
	for _, gsi := range t.GSIs {
		idx := types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.Name),
			KeySchema:  gsi.KeyDefinitions.KeySchema(),
			Projection: gsi.Projection.sdk(),
		}
		if provisioned {
			idx.ProvisionedThroughput = gsi.Throughput.sdk()
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, idx)
	}
	for _, lsi := range t.LSIs {
		in.LocalSecondaryIndexes = append(in.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  lsi.KeyDefinitions.KeySchema(),
			Projection: lsi.Projection.sdk(),
		})
	}
	return in
}

// Description renders the definition the way DescribeTable reports it.
// Status, ARN and timestamps are left to the caller.
func (t TableDefinition) Description() *types.TableDescription {
	desc := &types.TableDescription{
		TableName:            aws.String(t.Name),
		AttributeDefinitions: t.attributeDefinitions(),
		KeySchema:            t.KeyDefinitions.KeySchema(),
		ItemCount:            aws.Int64(0),
		TableSizeBytes:       aws.Int64(0),
	}
	provisioned := t.BillingMode != BillingModePayPerRequest
	if provisioned {
		desc.BillingModeSummary = &types.BillingModeSummary{BillingMode: types.BillingModeProvisioned}
	} else {
		desc.BillingModeSummary = &types.BillingModeSummary{BillingMode: types.BillingModePayPerRequest}
	}
	desc.ProvisionedThroughput = t.Throughput.description()
	for _, gsi := range t.GSIs {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:             aws.String(gsi.Name),
			IndexStatus:           types.IndexStatusActive,
			KeySchema:             gsi.KeyDefinitions.KeySchema(),
			Projection:            gsi.Projection.sdk(),
			ProvisionedThroughput: gsi.Throughput.description(),
		})
	}
	for _, lsi := range t.LSIs {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, types.LocalSecondaryIndexDescription{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  lsi.KeyDefinitions.KeySchema(),
			Projection: lsi.Projection.sdk(),
		})
	}
	return desc
}

func (t TableDefinition) attributeDefinitions() []types.AttributeDefinition {
	defs := make([]types.AttributeDefinition, 0, len(t.Attributes))
	for _, attr := range t.Attributes {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(attr.Name),
			AttributeType: types.ScalarAttributeType(attr.Kind),
		})
	}
	return defs
}

func attributesFromSDK(defs []types.AttributeDefinition) []KeyDef {
	attrs := make([]KeyDef, 0, len(defs))
	for _, d := range defs {
		attrs = append(attrs, KeyDef{
			Name: aws.ToString(d.AttributeName),
			Kind: KeyKind(d.AttributeType),
		})
	}
	return attrs
}

func throughputFromDescription(p *types.ProvisionedThroughputDescription) Throughput {
	if p == nil {
		return Throughput{}
	}
	return Throughput{
		ReadCapacityUnits:  aws.ToInt64(p.ReadCapacityUnits),
		WriteCapacityUnits: aws.ToInt64(p.WriteCapacityUnits),
	}
}

func throughputFromSDK(p *types.ProvisionedThroughput) Throughput {
	if p == nil {
		return Throughput{}
	}
	return Throughput{
		ReadCapacityUnits:  aws.ToInt64(p.ReadCapacityUnits),
		WriteCapacityUnits: aws.ToInt64(p.WriteCapacityUnits),
	}
}

func (t Throughput) sdk() *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(t.ReadCapacityUnits),
		WriteCapacityUnits: aws.Int64(t.WriteCapacityUnits),
	}
}

func (t Throughput) description() *types.ProvisionedThroughputDescription {
	return &types.ProvisionedThroughputDescription{
		ReadCapacityUnits:      aws.Int64(t.ReadCapacityUnits),
		WriteCapacityUnits:     aws.Int64(t.WriteCapacityUnits),
		NumberOfDecreasesToday: aws.Int64(0),
	}
}
