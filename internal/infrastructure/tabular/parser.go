package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
)

// Parser reads delimited (CSV) and spreadsheet (XLSX) files into typed
// observations. Rows missing a required field or failing value coercion are
// dropped and reported in the returned error list; they never abort the file.
type Parser struct {
	files ports.FileStore
}

func NewParser(files ports.FileStore) *Parser {
	return &Parser{files: files}
}

func (p *Parser) Parse(ctx context.Context, fileName string) ([]domain.Observation, []error, error) {
	reader, err := p.files.Open(ctx, fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return parseXLSX(reader)
	default:
		return parseCSV(reader)
	}
}

func parseCSV(reader io.Reader) ([]domain.Observation, []error, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve csv columns: %w", err)
	}

	out := make([]domain.Observation, 0)
	rowErrs := make([]error, 0)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		obs, err := coerceRow(record, cols)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		out = append(out, obs)
	}
	return out, rowErrs, nil
}

func parseXLSX(reader io.Reader) ([]domain.Observation, []error, error) {
	wb, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, nil, fmt.Errorf("resolve sheet columns: %w", err)
	}

	out := make([]domain.Observation, 0, len(rows)-1)
	rowErrs := make([]error, 0)
	for i, record := range rows[1:] {
		obs, err := coerceRow(record, cols)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: %w", i+2, err))
			continue
		}
		out = append(out, obs)
	}
	return out, rowErrs, nil
}

func coerceRow(record []string, cols columnSet) (domain.Observation, error) {
	areaCode := cell(record, cols.areaCode)
	areaName := cell(record, cols.areaName)
	period := cell(record, cols.period)
	rawValue := cell(record, cols.value)

	if areaCode == "" || areaName == "" || period == "" || rawValue == "" {
		return domain.Observation{}, fmt.Errorf("missing required field")
	}

	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse value %q: %w", rawValue, err)
	}

	return domain.Observation{
		AreaCode: areaCode,
		AreaName: areaName,
		Period:   period,
		Value:    value,
	}, nil
}
