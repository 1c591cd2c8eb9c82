package pipeline

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// dimensionMaps holds natural value -> surrogate id per dimension.
type dimensionMaps map[models.DimensionName]map[string]int32

func loadDimensionMaps(ctx context.Context, repo repositories.DimensionRepository, names ...models.DimensionName) (dimensionMaps, error) {
	out := make(dimensionMaps, len(names))
	for _, name := range names {
		dim, ok := models.LookupDimension(name)
		if !ok {
			return nil, fmt.Errorf("unknown dimension %q", name)
		}
		m, err := repo.LoadMap(ctx, dim)
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	return out, nil
}

// ref resolves value against a dimension. Empty and unknown values are nil.
func (d dimensionMaps) ref(name models.DimensionName, value string) *int32 {
	if value == "" {
		return nil
	}
	id, ok := d[name][value]
	if !ok {
		return nil
	}
	return &id
}

func distinctNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
