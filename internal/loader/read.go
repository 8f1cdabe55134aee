// Package loader reads delimited text files and Excel workbooks from a
// directory and inserts their rows into a SQL Server table.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Record is one data row and the index of the file (or sheet) it came from.
type Record struct {
	Values    []string
	FileIndex int
}

// Sheet is the data rows of one worksheet, header excluded.
type Sheet struct {
	Name string
	Rows [][]string
}

// ErrEmptyFile is returned by ReadText for a file without a header row.
var ErrEmptyFile = errors.New("no header row")

// candidateDelimiters are tried, in this order, when sniffing text files.
var candidateDelimiters = []rune{'\t', ';', ',', '|'}

// ReadDir reads every .txt and .xlsx file directly in dir, in name order.
// Each text file and each worksheet gets the next file index. Files that
// cannot be read, empty text files included, are logged and skipped without
// taking an index.
func ReadDir(dir string, log zerolog.Logger) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		records   []Record
		fileIndex int
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt":
			rows, err := ReadText(path)
			if err != nil {
				log.Warn().Err(err).Str("file", e.Name()).Msg("Could not read file")
				continue
			}
			fileIndex++
			for _, row := range rows {
				records = append(records, Record{Values: row, FileIndex: fileIndex})
			}
			log.Info().Str("file", e.Name()).Int("rows", len(rows)).Msg("Read text file")
		case ".xlsx", ".xlsm":
			sheets, err := ReadExcel(path)
			if err != nil {
				log.Warn().Err(err).Str("file", e.Name()).Msg("Could not read file")
				continue
			}
			n := 0
			for _, sh := range sheets {
				fileIndex++
				log.Info().Str("file", e.Name()).Str("sheet", sh.Name).Int("index", fileIndex).Msg("Reading sheet")
				for _, row := range sh.Rows {
					records = append(records, Record{Values: row, FileIndex: fileIndex})
				}
				n += len(sh.Rows)
			}
			log.Info().Str("file", e.Name()).Int("rows", n).Msg("Read workbook")
		case ".xls":
			log.Warn().Str("file", e.Name()).Msg("Legacy .xls workbooks are not supported; save as .xlsx")
		}
	}
	return records, nil
}

// ReadText reads a delimited text file. The delimiter is sniffed from the
// header line, which is not returned. Values are kept as strings. A file
// without a header row fails with ErrEmptyFile.
func ReadText(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	header, err := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = SniffDelimiter(header)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyFile)
	}
	return rows[1:], nil
}

// SniffDelimiter returns the candidate delimiter occurring most often in
// line, or ',' when none occurs.
func SniffDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ReadExcel returns the data rows of every worksheet. The first row of a
// sheet is its header; short rows are padded to the header width.
func ReadExcel(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		sh := Sheet{Name: name}
		if len(rows) > 1 {
			width := len(rows[0])
			for _, row := range rows[1:] {
				if len(row) < width {
					row = append(row, make([]string, width-len(row))...)
				}
				sh.Rows = append(sh.Rows, row)
			}
		}
		sheets = append(sheets, sh)
	}
	return sheets, nil
}
