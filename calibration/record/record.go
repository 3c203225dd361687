// Package record reads and writes calibration data files: one measured tool pose per captured
// image, in meters and radians.
package record

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/handeye/spatialmath"
)

// Header is the first line of every data file.
const Header = "PointID, X, Y, Z, Rx, Ry, Rz"

// Default data file locations per generation mode.
const (
	DefaultGridFile    = "workspace/calibration_data.txt"
	DefaultPyramidFile = "workspace/calibration_3d_data.txt"
)

// Record is the pose measured when the image for PointIndex was captured.
type Record struct {
	PointIndex int
	Measured   spatialmath.Pose
}

// String formats the record as a data file row.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.PointIndex))
	for _, v := range r.Measured {
		fmt.Fprintf(&b, ", %.6f", v)
	}
	return b.String()
}

// Write writes the header and one row per record.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(bw, r.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile replaces path with the given records, creating parent directories as needed.
func WriteFile(path string, records []Record) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, "creating data directory")
		}
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return Write(f, records)
}

// Read parses a data file. Blank lines are skipped.
func Read(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	var records []Record
	lineNum := 0
	sawHeader := false
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if !strings.EqualFold(strings.ReplaceAll(line, " ", ""), strings.ReplaceAll(Header, " ", "")) {
				return nil, errors.Errorf("line %d: unexpected header %q", lineNum, line)
			}
			sawHeader = true
			continue
		}
		rec, err := parseRow(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, errors.New("empty data file")
	}
	return records, nil
}

func parseRow(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 7 {
		return Record{}, errors.Errorf("expected 7 fields, got %d", len(fields))
	}
	idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, errors.Wrap(err, "point id")
	}
	rec := Record{PointIndex: idx}
	for i := range rec.Measured {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return Record{}, errors.Wrapf(err, "field %s", spatialmath.Component(i))
		}
		rec.Measured[i] = v
	}
	return rec, nil
}

// ReadFile parses the data file at path.
func ReadFile(path string) ([]Record, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return Read(f)
}
