package tabular

import (
	"fmt"
	"strings"
)

// columnSet is the resolved position of the four required fields within a
// header row. Files may use the canonical names or the legacy aliases; both
// schemes are accepted, canonical winning when a file mixes them.
type columnSet struct {
	areaCode int
	areaName int
	period   int
	value    int
}

var columnAliases = map[string][]string{
	"area_code": {"area_code", "geo"},
	"area_name": {"area_name", "geo_name"},
	"period":    {"period", "time"},
	"value":     {"value", "obs_value"},
}

func resolveColumns(header []string) (columnSet, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	find := func(field string) (int, error) {
		for _, alias := range columnAliases[field] {
			if pos, ok := index[alias]; ok {
				return pos, nil
			}
		}
		return 0, fmt.Errorf("missing column %s (aliases %s)", field, strings.Join(columnAliases[field], ", "))
	}

	var cols columnSet
	var err error
	if cols.areaCode, err = find("area_code"); err != nil {
		return columnSet{}, err
	}
	if cols.areaName, err = find("area_name"); err != nil {
		return columnSet{}, err
	}
	if cols.period, err = find("period"); err != nil {
		return columnSet{}, err
	}
	if cols.value, err = find("value"); err != nil {
		return columnSet{}, err
	}
	return cols, nil
}

func cell(record []string, pos int) string {
	if pos < 0 || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
