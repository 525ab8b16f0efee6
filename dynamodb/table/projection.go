package table

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ProjectionDefinition describes which attributes a secondary index carries.
type ProjectionDefinition struct {
	Kind ProjectionKind
	// In addition to the attributes described in KEYS_ONLY, the secondary index will include other non-key attributes that you specify.
	// Will only be used if the ProjectionKind is ProjectSubset.
	NonKeyAttributes []string
}

type ProjectionKind string

const (
	ProjectAll      ProjectionKind = "ALL"
	ProjectOnlyKeys ProjectionKind = "KEYS_ONLY"
	ProjectSubset   ProjectionKind = "INCLUDE"
)

func projectionFromSDK(p *types.Projection) ProjectionDefinition {
	if p == nil {
		return ProjectionDefinition{Kind: ProjectAll}
	}
	def := ProjectionDefinition{Kind: ProjectionKind(p.ProjectionType)}
	if def.Kind == "" {
		def.Kind = ProjectAll
	}
	if def.Kind == ProjectSubset {
		def.NonKeyAttributes = append([]string(nil), p.NonKeyAttributes...)
	}
	return def
}

func (p ProjectionDefinition) sdk() *types.Projection {
	kind := p.Kind
	if kind == "" {
		kind = ProjectAll
	}
	out := &types.Projection{ProjectionType: types.ProjectionType(kind)}
	if kind == ProjectSubset && len(p.NonKeyAttributes) > 0 {
		out.NonKeyAttributes = append([]string(nil), p.NonKeyAttributes...)
	}
	return out
}
