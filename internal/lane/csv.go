package lane

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// OffsetHeader is the lane CSV header.
var OffsetHeader = []string{"frame", "timestamp_ms", "lane_offset_px"}

// WriteOffsetsCSV writes the header and one row per sample.
func WriteOffsetsCSV(w io.Writer, samples []OffsetSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OffsetHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.Itoa(s.Frame),
			strconv.FormatInt(s.TimestampMS, 10),
			strconv.FormatFloat(s.OffsetPX, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadOffsetsCSV parses a lane CSV. Columns are located by header name.
func ReadOffsetsCSV(r io.Reader) ([]OffsetSample, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("lane csv: missing header")
	}
	if err != nil {
		return nil, err
	}

	colMap := make(map[string]int, len(header))
	for i, h := range header {
		colMap[h] = i
	}
	for _, name := range OffsetHeader {
		if _, ok := colMap[name]; !ok {
			return nil, fmt.Errorf("lane csv: missing column %q", name)
		}
	}

	var out []OffsetSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		frame, err := strconv.Atoi(rec[colMap["frame"]])
		if err != nil {
			return nil, fmt.Errorf("lane csv line %d: frame: %w", line, err)
		}
		ts, err := strconv.ParseInt(rec[colMap["timestamp_ms"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lane csv line %d: timestamp_ms: %w", line, err)
		}
		off, err := strconv.ParseFloat(rec[colMap["lane_offset_px"]], 64)
		if err != nil {
			return nil, fmt.Errorf("lane csv line %d: lane_offset_px: %w", line, err)
		}
		out = append(out, OffsetSample{Frame: frame, TimestampMS: ts, OffsetPX: off})
	}
	return out, nil
}
