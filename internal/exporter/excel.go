// Package exporter renders license records into downloadable report files
// for the admin surface. XLSX is the primary format; CSV is kept for
// spreadsheet-averse tooling.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"idmeapi/internal/license"
)

// reportHeaders mirrors the sheet column order so exports line up with what
// admins see in the spreadsheet.
var reportHeaders = []string{
	"License Key", "Customer Name", "Phone", "Email",
	"Expiry Date", "Status", "Created", "Last Renewed", "Total Paid",
	"Device 1 ID", "Device 1 Name", "Device 1 Last Used",
	"Device 2 ID", "Device 2 Name", "Device 2 Last Used",
	"Device 3 ID", "Device 3 Name", "Device 3 Last Used",
	"Device Count", "Alerts", "Receipt URL", "Purchased At",
}

const sheetName = "Licenses"

// WriteXLSX renders all records into an Excel workbook.
func WriteXLSX(w io.Writer, records []license.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", header, err)
		}
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(reportHeaders), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastCol, headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	for i := range records {
		row := recordCells(&records[i])
		startCell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, startCell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// Wide columns for the key and customer identity.
	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "D", 22); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV renders all records as UTF-8 CSV with a BOM so Excel opens it
// correctly.
func WriteCSV(w io.Writer, records []license.Record) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i := range records {
		cells := recordCells(&records[i])
		row := make([]string, len(cells))
		for j, c := range cells {
			row[j] = fmt.Sprint(c)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func recordCells(rec *license.Record) []interface{} {
	cells := []interface{}{
		rec.Key, rec.CustomerName, rec.Phone, rec.Email,
		rec.Expiry, rec.Status, rec.Created, rec.LastRenewed, rec.TotalPaid,
	}
	for _, slot := range rec.Devices {
		lastUsed := ""
		if !slot.LastUsed.IsZero() {
			lastUsed = license.FormatDateTime(slot.LastUsed)
		}
		cells = append(cells, slot.ID, slot.Name, lastUsed)
	}
	cells = append(cells, rec.DeviceCount, rec.Alerts, rec.ReceiptURL, rec.PurchasedAt)
	return cells
}
