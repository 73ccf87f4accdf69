package repositories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytcurate/internal/shared"
)

// dateLayout matches the timestamps written by pandas, which older state files contain.
const dateLayout = "2006-01-02 15:04:05-07:00"

var dateLayouts = []string{dateLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// csvTable is a parsed CSV file addressed by column name.
type csvTable struct {
	index   map[string]int
	records [][]string
}

func readCSV(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &csvTable{index: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrStateFile, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &csvTable{index: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrStateFile, path, err)
	}

	table := &csvTable{index: make(map[string]int, len(header))}
	for i, name := range header {
		table.index[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}

	table.records, err = r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrStateFile, path, err)
	}
	return table, nil
}

func (t *csvTable) get(record []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// parseInt reads a nullable integer. Float renderings such as "120.0" are accepted.
func parseInt(s string) *int64 {
	if s == "" || strings.EqualFold(s, "nan") || s == "<NA>" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		n := int64(f)
		return &n
	}
	return nil
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "True"
	}
	return "False"
}

func parseBool(s string) *bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
