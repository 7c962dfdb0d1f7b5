package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

const sheetName = "Contacts"

var columns = []string{
	"ID", "Name", "Organization", "Role", "Region", "Fit",
	"Proximity", "Capacity", "Familiarity", "Last Contact", "Interactions", "Score",
}

// Exporter writes search results to timestamped xlsx files under a
// fixed directory.
type Exporter struct {
	dir string
}

func New(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

func (e *Exporter) Export(ctx context.Context, results []domain.SearchResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(sheet)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i, result := range results {
		contact := result.Contact
		row := []any{
			contact.ID,
			contact.FullName(),
			contact.Organization,
			contact.Role,
			contact.Region,
			string(contact.FitType),
			scoreCell(contact.ProximityScore),
			scoreCell(contact.CapacityScore),
			contact.Familiarity,
			timeCell(contact.LastContactAt),
			contact.InteractionCount,
			result.Score,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	path := filepath.Join(e.dir, fmt.Sprintf("contacts-%s.xlsx", time.Now().UTC().Format("20060102-150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func scoreCell(score *int) any {
	if score == nil {
		return ""
	}
	return *score
}

func timeCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
