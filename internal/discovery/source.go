package discovery

import (
	"context"
	"iter"
	"slices"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

// Source выдаёт runs для одного прохода оркестратора.
//
// Последовательность ленивая и перезапускаемая: каждый вызов Runs заново
// читает источник, поэтому runs, появившиеся между проходами, попадают
// в следующий проход.
type Source interface {
	Runs(ctx context.Context, cfg *config.Config) iter.Seq[domain.Run]
}

// SourceFunc — адаптер функции к Source.
type SourceFunc func(ctx context.Context, cfg *config.Config) iter.Seq[domain.Run]

// Runs реализует Source.
func (f SourceFunc) Runs(ctx context.Context, cfg *config.Config) iter.Seq[domain.Run] {
	return f(ctx, cfg)
}

// Static возвращает Source, всегда выдающий один и тот же набор runs.
func Static(runs ...domain.Run) Source {
	return SourceFunc(func(context.Context, *config.Config) iter.Seq[domain.Run] {
		return slices.Values(runs)
	})
}
