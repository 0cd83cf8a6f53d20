package feed

import (
	"context"

	"alphawatch/internal/domain"
)

// BotPerformanceProvider derives per-strategy performance from the user's
// bot instances. When several bots run the same strategy, their realized
// PnL-based returns are averaged.
type BotPerformanceProvider struct {
	bots domain.BotStore
}

// NewBotPerformanceProvider creates a provider backed by the bot store.
func NewBotPerformanceProvider(bots domain.BotStore) *BotPerformanceProvider {
	return &BotPerformanceProvider{bots: bots}
}

// StrategyPerformance returns one summary per distinct strategy the user's
// bots run.
func (p *BotPerformanceProvider) StrategyPerformance(ctx context.Context, userID string) ([]domain.StrategyPerformance, error) {
	bots, err := p.bots.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type agg struct {
		sum   float64
		count int
	}
	byStrategy := make(map[string]*agg)
	order := make([]string, 0, len(bots))
	for _, b := range bots {
		if b.StrategyID == "" {
			continue
		}
		a, ok := byStrategy[b.StrategyID]
		if !ok {
			a = &agg{}
			byStrategy[b.StrategyID] = a
			order = append(order, b.StrategyID)
		}
		a.sum += b.Performance.ReturnPercent
		a.count++
	}

	out := make([]domain.StrategyPerformance, 0, len(order))
	for _, id := range order {
		a := byStrategy[id]
		out = append(out, domain.StrategyPerformance{
			StrategyID:    id,
			ReturnPercent: a.sum / float64(a.count),
		})
	}
	return out, nil
}

// Compile-time interface check.
var _ PerformanceProvider = (*BotPerformanceProvider)(nil)
