package sheetstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"idmeapi/internal/license"
)

// Column layout of the license sheet, zero-based. Columns A through V.
const (
	colKey = iota
	colCustomerName
	colPhone
	colEmail
	colExpiry
	colStatus
	colCreated
	colLastRenewed
	colTotalPaid
	colDevice1ID
	colDevice1Name
	colDevice1LastUsed
	colDevice2ID
	colDevice2Name
	colDevice2LastUsed
	colDevice3ID
	colDevice3Name
	colDevice3LastUsed
	colDeviceCount
	colAlerts
	colReceiptURL
	colPurchasedAt

	columnCount
)

// lastUsedLayout is the timestamp form written to device last-used cells.
const lastUsedLayout = "02/01/2006 15:04:05"

// rowToRecord decodes one sheet row. Short rows are tolerated because
// manually added rows often stop at the last filled column. The cached
// device count is always recomputed from the slots rather than trusted.
func rowToRecord(row []interface{}) *license.Record {
	rec := &license.Record{
		Key:          cellString(row, colKey),
		CustomerName: cellString(row, colCustomerName),
		Phone:        cellString(row, colPhone),
		Email:        cellString(row, colEmail),
		Expiry:       cellString(row, colExpiry),
		Status:       cellString(row, colStatus),
		Created:      cellString(row, colCreated),
		LastRenewed:  cellString(row, colLastRenewed),
		TotalPaid:    cellString(row, colTotalPaid),
		Alerts:       cellString(row, colAlerts),
		ReceiptURL:   cellString(row, colReceiptURL),
		PurchasedAt:  cellString(row, colPurchasedAt),
	}

	for i := 0; i < license.MaxDevices; i++ {
		base := colDevice1ID + i*3
		rec.Devices[i] = license.DeviceSlot{
			ID:       cellString(row, base),
			Name:     cellString(row, base+1),
			LastUsed: parseLastUsed(row, base+2),
		}
	}

	rec.RecountDevices()
	return rec
}

// recordToRow encodes a record into the full A:V row written back to the
// sheet. The device count cell is recomputed on the way out.
func recordToRow(rec *license.Record) []interface{} {
	row := make([]interface{}, columnCount)
	for i := range row {
		row[i] = ""
	}

	row[colKey] = rec.Key
	row[colCustomerName] = rec.CustomerName
	row[colPhone] = rec.Phone
	row[colEmail] = rec.Email
	row[colExpiry] = rec.Expiry
	row[colStatus] = rec.Status
	row[colCreated] = rec.Created
	row[colLastRenewed] = rec.LastRenewed
	row[colTotalPaid] = rec.TotalPaid
	row[colAlerts] = rec.Alerts
	row[colReceiptURL] = rec.ReceiptURL
	row[colPurchasedAt] = rec.PurchasedAt

	for i, slot := range rec.Devices {
		base := colDevice1ID + i*3
		row[base] = slot.ID
		row[base+1] = slot.Name
		if !slot.LastUsed.IsZero() {
			row[base+2] = slot.LastUsed.Format(lastUsedLayout)
		}
	}

	row[colDeviceCount] = strconv.Itoa(rec.RecountDevices())
	return row
}

// cellString reads a cell as text, tolerating rows shorter than the full
// column span and the non-string values the Sheets API can return.
func cellString(row []interface{}, col int) string {
	if col >= len(row) || row[col] == nil {
		return ""
	}
	switch v := row[col].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		// Whole numbers come back as floats; render without the .000000.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// parseLastUsed decodes a device last-used cell. The canonical timestamp
// layout is tried first; older rows carry date-only text or raw epoch
// numbers, which ParseDateValue handles.
func parseLastUsed(row []interface{}, col int) time.Time {
	if col >= len(row) || row[col] == nil {
		return time.Time{}
	}
	if s, ok := row[col].(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}
		}
		if t, err := time.ParseInLocation(lastUsedLayout, s, time.Local); err == nil {
			return t
		}
	}
	if t, err := license.ParseDateValue(row[col]); err == nil {
		return t
	}
	return time.Time{}
}
