package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sternrassler/cin7-report-sync/pkg/report"
)

// ErrorColumns is the header of the processing errors file.
var ErrorColumns = []string{"user", "order_id", "reference", "error", "timestamp"}

// TimestampLayout renders processing error timestamps.
const TimestampLayout = "2006-01-02T15:04:05.999999"

// FileName returns "<prefix>_<YYYYMMDD>_<YYYYMMDD>.csv" for a range.
func FileName(prefix string, r report.DateRange) string {
	return fmt.Sprintf("%s_%s_%s.csv", prefix, r.Start.Format("20060102"), r.End.Format("20060102"))
}

// WriteRows writes the header and one line per row in variant column order.
func WriteRows(w io.Writer, v report.Variant, rows []report.OutputRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(rows[i].Values(v.Columns)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteErrors writes the processing errors file. The header is written even
// when there are no errors.
func WriteErrors(w io.Writer, errs []report.ProcessingError) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ErrorColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range errs {
		line := []string{e.Account, strconv.FormatInt(e.RecordID, 10), e.Reference, e.Err, e.Timestamp.UTC().Format(TimestampLayout)}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write error line: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Files are the paths written by WriteFiles.
type Files struct {
	Rows   string
	Errors string
}

// WriteFiles writes the rows and errors CSVs into dir, creating it if needed.
func WriteFiles(dir string, v report.Variant, r report.DateRange, rows []report.OutputRow, errs []report.ProcessingError) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}

	files := Files{
		Rows:   filepath.Join(dir, FileName(v.FilePrefix, r)),
		Errors: filepath.Join(dir, v.ErrorsFile()),
	}

	if err := writeFile(files.Rows, func(w io.Writer) error { return WriteRows(w, v, rows) }); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.Errors, func(w io.Writer) error { return WriteErrors(w, errs) }); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
