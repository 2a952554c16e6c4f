package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType enumerates the kinds of typed directed edge between two
// Resources (spec §3).
type RelationshipType string

// Relationship types recognised by the graph store.
const (
	RelationshipDependsOn   RelationshipType = "DependsOn"
	RelationshipProduces    RelationshipType = "Produces"
	RelationshipConsumes    RelationshipType = "Consumes"
	RelationshipContains    RelationshipType = "Contains"
	RelationshipTrainedWith RelationshipType = "TrainedWith"
	RelationshipHasAccess   RelationshipType = "HasAccess"
	RelationshipDerivesFrom RelationshipType = "DerivesFrom"
	RelationshipReferences  RelationshipType = "References"
	RelationshipExtends     RelationshipType = "Extends"
)

// KnownRelationshipTypes lists every relationship type the graph store
// accepts.
var KnownRelationshipTypes = []RelationshipType{
	RelationshipDependsOn, RelationshipProduces, RelationshipConsumes, RelationshipContains,
	RelationshipTrainedWith, RelationshipHasAccess, RelationshipDerivesFrom, RelationshipReferences,
	RelationshipExtends,
}

// IsKnownRelationshipType reports whether t is one of KnownRelationshipTypes.
func IsKnownRelationshipType(t RelationshipType) bool {
	for _, known := range KnownRelationshipTypes {
		if t == known {
			return true
		}
	}

	return false
}

// CyclicRelationshipTypes are the types per-type acyclicity applies to
// (spec §3): DependsOn, Produces, DerivesFrom. Consumes is deliberately
// excluded — see DESIGN.md Open Question decisions.
var CyclicRelationshipTypes = map[RelationshipType]bool{
	RelationshipDependsOn:   true,
	RelationshipProduces:    true,
	RelationshipDerivesFrom: true,
}

// RequiresCycleCheck reports whether t participates in per-type acyclicity.
func RequiresCycleCheck(t RelationshipType) bool {
	return CyclicRelationshipTypes[t]
}

// Relationship is a typed directed edge between two Resources (spec §3).
type Relationship struct {
	ID                   uuid.UUID
	Type                 RelationshipType
	SourceID             uuid.UUID
	TargetID             uuid.UUID
	Bidirectional        bool
	DependencySubType    string
	Required             bool
	VersionConstraint    string
	TransformationType   string
	TransformationLogic  string
	CreatedAt            time.Time
	CreatedBy            string
}
