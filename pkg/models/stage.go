package models

// ============================================================================
// Pipeline Stages
// ============================================================================

// StageName identifies one stage of the warehouse pipeline.
type StageName string

const (
	StageSchemaReset    StageName = "SchemaReset"
	StageStagingLoad    StageName = "StagingLoad"
	StageDimensionBuild StageName = "DimensionBuild"
	StageEntityLoad     StageName = "EntityLoad"
	StageFactBuild      StageName = "FactBuild"
)

// StageOrder defines the execution order for each stage.
var StageOrder = map[StageName]int{
	StageSchemaReset:    1,
	StageStagingLoad:    2,
	StageDimensionBuild: 3,
	StageEntityLoad:     4,
	StageFactBuild:      5,
}

// StageInputs lists the stages whose committed output a stage reads.
var StageInputs = map[StageName][]StageName{
	StageSchemaReset:    nil,
	StageStagingLoad:    {StageSchemaReset},
	StageDimensionBuild: {StageStagingLoad},
	StageEntityLoad:     {StageStagingLoad, StageDimensionBuild},
	StageFactBuild:      {StageStagingLoad, StageDimensionBuild, StageEntityLoad},
}

// AllStages returns all stage names in execution order.
func AllStages() []StageName {
	return []StageName{
		StageSchemaReset,
		StageStagingLoad,
		StageDimensionBuild,
		StageEntityLoad,
		StageFactBuild,
	}
}

// IsValid checks if the stage name is known.
func (s StageName) IsValid() bool {
	_, ok := StageOrder[s]
	return ok
}
