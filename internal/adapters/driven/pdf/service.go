package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure ServiceExtractor implements PDFExtractor
var _ driven.PDFExtractor = (*ServiceExtractor)(nil)

const defaultServiceTimeout = 2 * time.Minute

// ServiceExtractor posts the PDF to a layout-aware extraction sidecar
// (pdfplumber behind POST /parse) that also returns tables.
type ServiceExtractor struct {
	baseURL string
	client  *http.Client
}

// NewServiceExtractor creates an extractor for the sidecar at baseURL
func NewServiceExtractor(baseURL string, timeout time.Duration) *ServiceExtractor {
	if timeout <= 0 {
		timeout = defaultServiceTimeout
	}
	return &ServiceExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// parseResponse is the sidecar's reply. Cells may be null.
type parseResponse struct {
	Pages []struct {
		Number int           `json:"number"`
		Text   string        `json:"text"`
		Tables [][][]*string `json:"tables"`
	} `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Name identifies the extractor in logs
func (e *ServiceExtractor) Name() string {
	return "service"
}

// Extract sends data to the sidecar and normalises its tables
func (e *ServiceExtractor) Extract(ctx context.Context, data []byte) ([]domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrExtraction, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrExtraction, err)
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: service returned status %d", domain.ErrExtraction, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned status %d: %s", domain.ErrExtraction, resp.StatusCode, parsed.Error)
	}

	pages := make([]domain.Page, len(parsed.Pages))
	for i, p := range parsed.Pages {
		number := p.Number
		if number <= 0 {
			number = i + 1
		}
		pages[i] = domain.Page{
			Number: number,
			Text:   p.Text,
			Tables: cleanTables(p.Tables),
		}
	}
	return pages, nil
}

// cleanTables trims cells, turns null cells into "" and drops tables
// with no non-empty cell.
func cleanTables(raw [][][]*string) []domain.Table {
	var tables []domain.Table
	for _, t := range raw {
		table := make(domain.Table, len(t))
		hasContent := false
		for r, row := range t {
			cells := make([]string, len(row))
			for c, cell := range row {
				if cell != nil {
					cells[c] = strings.TrimSpace(*cell)
				}
				if cells[c] != "" {
					hasContent = true
				}
			}
			table[r] = cells
		}
		if hasContent {
			tables = append(tables, table)
		}
	}
	return tables
}

// HealthCheck verifies the sidecar answers
func (e *ServiceExtractor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("pdf service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pdf service returned status %d", resp.StatusCode)
	}
	return nil
}
