package ingest

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
)

const StrategyGrantsGov = "api_grants_gov"

// PageFetcher is the contract every listing source implements.
type PageFetcher interface {
	FetchPage(ctx context.Context, offset, pageSize int) (*Page, error)
}

// FetcherFactory builds a PageFetcher for a registry entry.
type FetcherFactory func(src SourceConfig, hc *http.Client) PageFetcher

// StrategyFactory maps strategy IDs (from sources.yaml) to fetcher constructors.
type StrategyFactory struct {
	strategies map[string]FetcherFactory
}

func NewStrategyFactory() *StrategyFactory {
	f := &StrategyFactory{strategies: make(map[string]FetcherFactory)}
	f.Register(StrategyGrantsGov, func(src SourceConfig, hc *http.Client) PageFetcher {
		return NewGrantsGovClient(src, hc)
	})
	return f
}

func (f *StrategyFactory) Register(id string, build FetcherFactory) {
	f.strategies[id] = build
}

// Fetcher returns a PageFetcher for src using its configured strategy.
func (f *StrategyFactory) Fetcher(src SourceConfig, hc *http.Client) (PageFetcher, error) {
	build, ok := f.strategies[src.Strategy]
	if !ok {
		return nil, eris.Errorf("strategy not found: %s", src.Strategy)
	}
	return build(src, hc), nil
}
