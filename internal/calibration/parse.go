// Package calibration loads measured calibration data (IQ transfer functions and Z-line
// crosstalk matrices) from local files or S3-compatible object storage, and caches the
// conditioning objects derived from it until the configuration changes.
package calibration

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aristath/qpulse/internal/modules/conditioning"
)

// ErrParse is returned for malformed calibration files.
var ErrParse = errors.New("malformed calibration file")

// readRows splits r into numeric rows. Fields are separated by whitespace or commas;
// blank lines and lines starting with # are skipped.
func readRows(r io.Reader) ([][]float64, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q is not a number", ErrParse, line, f)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	return rows, nil
}

// ParseTransferFunction reads rows of "frequency re(H_I) im(H_I) re(H_Q) im(H_Q)".
func ParseTransferFunction(r io.Reader) (conditioning.TransferFunction, error) {
	rows, err := readRows(r)
	if err != nil {
		return conditioning.TransferFunction{}, err
	}

	tf := conditioning.TransferFunction{
		Freq: make([]float64, len(rows)),
		HI:   make([]complex128, len(rows)),
		HQ:   make([]complex128, len(rows)),
	}
	for i, row := range rows {
		if len(row) != 5 {
			return conditioning.TransferFunction{}, fmt.Errorf("%w: transfer function row %d has %d columns, want 5", ErrParse, i+1, len(row))
		}
		tf.Freq[i] = row[0]
		tf.HI[i] = complex(row[1], row[2])
		tf.HQ[i] = complex(row[3], row[4])
	}
	if err := tf.Validate(); err != nil {
		return conditioning.TransferFunction{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return tf, nil
}

// ParseMatrix reads a rectangular numeric matrix, one row per line.
func ParseMatrix(r io.Reader) ([][]float64, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: matrix is empty", ErrParse)
	}
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("%w: matrix row %d has %d columns, row 1 has %d", ErrParse, i+1, len(row), len(rows[0]))
		}
	}
	return rows, nil
}
