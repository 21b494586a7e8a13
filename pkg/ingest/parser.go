package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// expectedColumns is the survey layout, S.No through U
const expectedColumns = 24

// RowError describes a row that was skipped
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parse reads a survey CSV with a header row. Rows with too few columns
// or no location are skipped and reported; blank or unreadable numbers
// read as zero.
func Parse(r io.Reader) ([]Record, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, eris.New("ingest: empty file")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read header")
	}
	columns := len(header)
	if columns < expectedColumns {
		return nil, nil, eris.Errorf("ingest: header has %d columns, want %d", columns, expectedColumns)
	}

	var (
		records []Record
		skipped []RowError
	)
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped = append(skipped, RowError{Line: perr.Line, Reason: perr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "ingest: read row")
		}
		if isBlank(values) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(values) < columns {
			skipped = append(skipped, RowError{Line: line, Reason: fmt.Sprintf("has %d columns, want %d", len(values), columns)})
			continue
		}

		rec := parseRecord(values)
		rec.Line = line
		if strings.TrimSpace(rec.Location) == "" {
			skipped = append(skipped, RowError{Line: line, Reason: "missing location"})
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func parseRecord(values []string) Record {
	// Helper function to parse floats
	parseFloat := func(i int) float64 {
		if val := strings.TrimSpace(values[i]); val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
		return 0.0
	}

	// Helper function to parse integers
	parseInt := func(i int, fallback int) int {
		if val := strings.TrimSpace(values[i]); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				return n
			}
		}
		return fallback
	}

	return Record{
		SerialNo:      parseInt(0, 0),
		State:         strings.TrimSpace(values[1]),
		District:      strings.TrimSpace(values[2]),
		Location:      strings.TrimSpace(values[3]),
		Longitude:     parseFloat(4),
		Latitude:      parseFloat(5),
		Year:          parseInt(6, DefaultYear),
		PH:            parseFloat(7),
		EC:            parseFloat(8),
		CO3:           parseFloat(9),
		HCO3:          parseFloat(10),
		Cl:            parseFloat(11),
		F:             parseFloat(12),
		SO4:           parseFloat(13),
		NO3:           parseFloat(14),
		PO4:           parseFloat(15),
		TotalHardness: parseFloat(16),
		Ca:            parseFloat(17),
		Mg:            parseFloat(18),
		Na:            parseFloat(19),
		K:             parseFloat(20),
		Fe:            parseFloat(21),
		As:            parseFloat(22),
		U:             parseFloat(23),
	}
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
