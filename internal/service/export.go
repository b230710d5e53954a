package service

import (
	"bytes"
	"context"
	"fmt"

	"caseflow-data/internal/domain"
	"caseflow-data/internal/repository"

	"github.com/xuri/excelize/v2"
)

// clientExportHeader roster export columns, in sheet order.
var clientExportHeader = []string{
	"Client ID",
	"First Name",
	"Last Name",
	"Date of Birth",
	"Email",
	"Phone",
	"City",
	"State",
	"Status",
	"Case Manager ID",
	"Intake Completed",
	"Created At",
}

// ExportService staff-only roster export.
type ExportService interface {
	ExportClients(ctx context.Context, actorID, status string) ([]byte, error)
}

type exportService struct {
	clients  repository.ClientsRepository
	profiles repository.ProfilesRepository
}

func NewExportService(clients repository.ClientsRepository, profiles repository.ProfilesRepository) ExportService {
	return &exportService{clients: clients, profiles: profiles}
}

var _ ExportService = (*exportService)(nil)

// exportBatchLimit pages of this size are pulled until the roster is drained.
const exportBatchLimit = 500

// ExportClients renders the full roster (optionally filtered by status) as an
// xlsx workbook.
func (s *exportService) ExportClients(ctx context.Context, actorID, status string) ([]byte, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	actor, err := s.profiles.GetProfile(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor", ErrUnauthenticated)
	}
	if !domain.IsStaffRole(actor.Role) {
		return nil, fmt.Errorf("%w: export is staff-only", ErrForbidden)
	}

	// Walk the roster with the same cursor the list endpoint uses.
	var all []*domain.Client
	filters := repository.ClientFilters{Status: status}
	for {
		rows, err := s.clients.ListClients(ctx, filters, exportBatchLimit+1)
		if err != nil {
			return nil, err
		}
		more := len(rows) > exportBatchLimit
		if more {
			rows = rows[:exportBatchLimit]
		}
		all = append(all, rows...)
		if !more || len(rows) == 0 {
			break
		}
		last := rows[len(rows)-1].CreatedAt
		filters.Cursor = &last
	}

	return generateClientExcel(all)
}

func generateClientExcel(clients []*domain.Client) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Clients"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range clientExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{
		38, // Client ID
		15, // First Name
		15, // Last Name
		14, // Date of Birth
		28, // Email
		16, // Phone
		16, // City
		8,  // State
		12, // Status
		38, // Case Manager ID
		18, // Intake Completed
		20, // Created At
	}
	for i := range clientExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(columnWidths) && columnWidths[i] > 0 {
			if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for rowIdx, c := range clients {
		row := rowIdx + 2

		dob := ""
		if c.DateOfBirth != nil {
			dob = c.DateOfBirth.Format("2006-01-02")
		}
		manager := ""
		if c.CaseManagerID != nil {
			manager = *c.CaseManagerID
		}
		completed := "No"
		if c.IntakeCompletedAt != nil {
			completed = c.IntakeCompletedAt.Format("2006-01-02 15:04:05")
		}

		values := []any{
			c.ClientID,
			c.FirstName,
			c.LastName,
			dob,
			c.Email,
			c.Phone,
			c.AddressCity,
			c.AddressState,
			c.Status,
			manager,
			completed,
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, value := range values {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}
