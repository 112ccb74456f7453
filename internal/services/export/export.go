// Package export writes the cached price payload to a spreadsheet.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"csgo-pricecheck/internal/services/pricecache"

	"github.com/xuri/excelize/v2"
)

const (
	PricesSheet = "Prices"
	InfoSheet   = "Info"
)

// WriteXLSX writes one row per cached item, sorted by market hash name, plus
// an info sheet with the fetch time and currency.
func WriteXLSX(w io.Writer, payload pricecache.Payload, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PricesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writePrices(f, payload.Prices, currency); err != nil {
		return err
	}
	if err := writeInfo(f, payload, currency); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writePrices(f *excelize.File, prices map[string]float64, currency string) error {
	sw, err := f.NewStreamWriter(PricesSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	names := make([]string, 0, len(prices))
	for name := range prices {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := sw.SetRow("A1", []interface{}{"market_hash_name", "price_" + currency}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, name := range names {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{name, prices[name]}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush prices: %w", err)
	}
	return nil
}

func writeInfo(f *excelize.File, payload pricecache.Payload, currency string) error {
	if _, err := f.NewSheet(InfoSheet); err != nil {
		return fmt.Errorf("create info sheet: %w", err)
	}
	rows := [][]interface{}{
		{"fetched_at", payload.FetchedAt.UTC().Format(time.RFC3339)},
		{"currency", currency},
		{"entries", len(payload.Prices)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(InfoSheet, cell, &row); err != nil {
			return fmt.Errorf("write info: %w", err)
		}
	}
	return nil
}
