package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// MockFetcher is a mock implementation of DocumentFetcher for testing
type MockFetcher struct {
	mu      sync.Mutex
	fetches map[string]int

	Data    []byte
	FetchFn func(locator string) ([]byte, error)
}

// NewMockFetcher creates a fetcher that returns data for every locator
func NewMockFetcher(data []byte) *MockFetcher {
	return &MockFetcher{
		fetches: make(map[string]int),
		Data:    data,
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	m.mu.Lock()
	m.fetches[locator]++
	m.mu.Unlock()

	data, err := m.Data, error(nil)
	if m.FetchFn != nil {
		data, err = m.FetchFn(locator)
	}
	if err == nil {
		// a real transport gives up once the context is done
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// FetchCount returns how often locator was fetched
func (m *MockFetcher) FetchCount(locator string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[locator]
}

// MockPDFExtractor is a mock implementation of PDFExtractor for testing
type MockPDFExtractor struct {
	Pages     []domain.Page
	ExtractFn func(data []byte) ([]domain.Page, error)
}

// NewMockPDFExtractor creates an extractor that always returns pages
func NewMockPDFExtractor(pages ...domain.Page) *MockPDFExtractor {
	return &MockPDFExtractor{Pages: pages}
}

func (m *MockPDFExtractor) Extract(ctx context.Context, data []byte) ([]domain.Page, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(data)
	}
	return m.Pages, nil
}

func (m *MockPDFExtractor) Name() string {
	return "mock"
}
