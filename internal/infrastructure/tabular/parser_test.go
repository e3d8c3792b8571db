package tabular

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

type fileStoreFake struct {
	files map[string][]byte
}

func (f *fileStoreFake) Open(_ context.Context, name string) (io.ReadCloser, error) {
	raw, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", name)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func TestParseCSVCanonicalColumns(t *testing.T) {
	store := &fileStoreFake{files: map[string][]byte{
		"cpi.csv": []byte("area_code,area_name,period,value\nDEU,Germany,2024-01,2.1\nFRA,France,2024-01,3.4\n"),
	}}
	p := NewParser(store)

	rows, rowErrs, err := p.Parse(context.Background(), "cpi.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrs)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].AreaCode != "DEU" || rows[0].Value != 2.1 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestParseCSVLegacyColumns(t *testing.T) {
	store := &fileStoreFake{files: map[string][]byte{
		"cpi.csv": []byte("geo,geo_name,time,obs_value\nDEU,Germany,2024-01,2.1\n"),
	}}
	p := NewParser(store)

	rows, rowErrs, err := p.Parse(context.Background(), "cpi.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrs)
	}
	if len(rows) != 1 || rows[0].AreaName != "Germany" || rows[0].Period != "2024-01" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseCSVDropsIncompleteRows(t *testing.T) {
	store := &fileStoreFake{files: map[string][]byte{
		"cpi.csv": []byte("area_code,area_name,period,value\nDEU,Germany,2024-01,2.1\n,France,2024-01,3.4\nITA,Italy,2024-01,abc\n"),
	}}
	p := NewParser(store)

	rows, rowErrs, err := p.Parse(context.Background(), "cpi.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(rows))
	}
	if len(rowErrs) != 2 {
		t.Fatalf("expected 2 row errors, got %v", rowErrs)
	}
}

func TestParseCSVMissingColumnFails(t *testing.T) {
	store := &fileStoreFake{files: map[string][]byte{
		"cpi.csv": []byte("area_code,period,value\nDEU,2024-01,2.1\n"),
	}}
	p := NewParser(store)

	if _, _, err := p.Parse(context.Background(), "cpi.csv"); err == nil {
		t.Fatalf("expected column resolution error")
	}
}

func TestParseXLSXFirstSheet(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]any{
		{"area_code", "area_name", "period", "value"},
		{"DEU", "Germany", "2024-01", 2.1},
		{"DEU", "Germany", "2024-02", 2.4},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := wb.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	store := &fileStoreFake{files: map[string][]byte{"cpi.xlsx": buf.Bytes()}}
	p := NewParser(store)

	parsed, rowErrs, err := p.Parse(context.Background(), "cpi.xlsx")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrs)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parsed))
	}
	if parsed[1].Period != "2024-02" {
		t.Fatalf("unexpected second row: %+v", parsed[1])
	}
}

func TestParseUnknownFileDefaultsToCSV(t *testing.T) {
	store := &fileStoreFake{files: map[string][]byte{
		"cpi.txt": []byte("area_code,area_name,period,value\nDEU,Germany,2024-01,2.1\n"),
	}}
	p := NewParser(store)

	rows, _, err := p.Parse(context.Background(), "cpi.txt")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !strings.EqualFold(rows[0].AreaCode, "DEU") {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}
