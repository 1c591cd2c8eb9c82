package pipeline

import (
	"fmt"
	"sort"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// Plan sorts the requested stages into execution order, dropping repeats.
// An empty request plans every stage.
func Plan(requested []models.StageName) ([]models.StageName, error) {
	if len(requested) == 0 {
		return models.AllStages(), nil
	}

	seen := make(map[models.StageName]bool, len(requested))
	var out []models.StageName
	for _, s := range requested {
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: unknown stage %q", apperrors.ErrInvalidStagePlan, s)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return models.StageOrder[out[i]] < models.StageOrder[out[j]]
	})
	return out, nil
}

// ValidateOrder rejects a stage list in which a stage appears twice or runs
// before one of its declared inputs. Inputs absent from the list are assumed
// to have been committed by an earlier run.
func ValidateOrder(stages []models.StageName) error {
	position := make(map[models.StageName]int, len(stages))
	for i, s := range stages {
		if !s.IsValid() {
			return fmt.Errorf("%w: unknown stage %q", apperrors.ErrInvalidStagePlan, s)
		}
		if _, dup := position[s]; dup {
			return fmt.Errorf("%w: stage %s listed twice", apperrors.ErrInvalidStagePlan, s)
		}
		position[s] = i
	}

	for i, s := range stages {
		for _, in := range models.StageInputs[s] {
			if p, ok := position[in]; ok && p > i {
				return fmt.Errorf("%w: %s must run after its input %s", apperrors.ErrInvalidStagePlan, s, in)
			}
		}
	}
	return nil
}
