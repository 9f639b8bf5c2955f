package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/anrid/xls"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// TableColumns names the statistics columns to read.
type TableColumns struct {
	Name    string
	Count   string
	Average string
}

// ExtractRowsFromFile calls handler for every row of the first sheet of
// a .csv, .xlsx or .xls file, header row included.
func ExtractRowsFromFile(path string, handler func(row []string) error) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ExtractRowsFromXLSX(path, handler)
	case ".xls":
		return ExtractRowsFromXLS(path, handler)
	default:
		return ExtractRowsFromCSV(path, handler)
	}
}

func ExtractRowsFromCSV(path string, handler func(row []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statistics file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if first && len(row) > 0 {
			row[0] = strings.TrimPrefix(row[0], "\ufeff")
			first = false
		}
		if err := handler(row); err != nil {
			return err
		}
	}
}

func ExtractRowsFromXLSX(path string, handler func(row []string) error) error {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open statistics workbook: %w", err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read rows of sheet '%s': %w", sheets[0], err)
	}

	for _, r := range rows {
		if err := handler(r); err != nil {
			return err
		}
	}
	return nil
}

func ExtractRowsFromXLS(path string, handler func(row []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statistics workbook: %w", err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return fmt.Errorf("read XLS file '%s': %w", path, err)
	}
	if wb == nil {
		return fmt.Errorf("read XLS file '%s': no workbook stream", path)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return fmt.Errorf("workbook %s has no sheets", path)
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		var cols []string
		for j := 0; j <= row.LastCol(); j++ {
			cols = append(cols, row.Col(j))
		}
		if err := handler(cols); err != nil {
			return err
		}
	}
	return nil
}

// ReadStatistics reads the statistics table at path. The first row is
// the header; blank rows are skipped. Name keys are normalized.
func ReadStatistics(path string, cols TableColumns) ([]*StatRow, error) {
	var (
		out    []*StatRow
		header map[string]int
		line   int
	)

	err := ExtractRowsFromFile(path, func(row []string) error {
		line++

		if header == nil {
			header = make(map[string]int, len(row))
			for i, h := range row {
				header[strings.TrimSpace(h)] = i
			}
			for _, c := range []string{cols.Name, cols.Count, cols.Average} {
				if _, ok := header[c]; !ok {
					return fmt.Errorf("%s: %w '%s'", path, ErrMissingColumn, c)
				}
			}
			return nil
		}

		if blankRow(row) {
			return nil
		}

		cell := func(name string) string {
			if i := header[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		count, err := parseCount(cell(cols.Count))
		if err != nil {
			return fmt.Errorf("%s row %d column %s: %w", path, line, cols.Count, err)
		}
		avg, err := parseFloat(cell(cols.Average))
		if err != nil {
			return fmt.Errorf("%s row %d column %s: %w", path, line, cols.Average, err)
		}

		name := cell(cols.Name)
		out = append(out, &StatRow{
			Name:              name,
			Key:               NormalizeKey(name),
			ProgramCount:      count,
			AverageEnrollment: avg,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("%s: empty statistics table", path)
	}

	return out, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isNullCell(v string) bool {
	switch strings.ToUpper(v) {
	case "", "NA", "N/A", "NAN", "NULL", "NONE":
		return true
	}
	return false
}

func parseFloat(v string) (*float64, error) {
	if isNullCell(v) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse '%s' into float64", v)
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("'%s' is not a finite number", v)
	}
	return &f, nil
}

func parseCount(v string) (*int64, error) {
	f, err := parseFloat(v)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("count '%s' is not a whole number", v)
	}
	if *f < math.MinInt64 || *f >= math.MaxInt64 {
		return nil, fmt.Errorf("count '%s' is out of range", v)
	}
	n := int64(*f)
	return &n, nil
}
