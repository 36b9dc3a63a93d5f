package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/drivecoach/internal/monitoring"
)

// PortOptions describes the serial connection used by a serial source.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return opts, nil
}

// SerialMode converts the options into a go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// LineSource reads newline-delimited snapshots from a stream and keeps only
// the latest one. A background goroutine drains the stream so Snapshot never
// blocks on I/O.
type LineSource struct {
	rc         io.ReadCloser
	speedUnits string

	mu     sync.Mutex
	latest Snapshot
	have   bool
	err    error

	done chan struct{}
}

// OpenSerial opens a serial port and returns a source reading from it.
func OpenSerial(path string, opts PortOptions, speedUnits string) (*LineSource, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, path, err)
	}
	return NewLineSource(port, speedUnits), nil
}

// NewLineSource starts reading rc in the background.
func NewLineSource(rc io.ReadCloser, speedUnits string) *LineSource {
	s := &LineSource{rc: rc, speedUnits: speedUnits, done: make(chan struct{})}
	go s.run()
	return s
}

func (s *LineSource) run() {
	defer close(s.done)
	scan := bufio.NewScanner(s.rc)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		snap, err := ParseSnapshot(line, s.speedUnits)
		if err != nil {
			monitoring.Logf("telemetry: ignoring line %q: %v", line, err)
			continue
		}
		s.mu.Lock()
		s.latest, s.have = snap, true
		s.mu.Unlock()
	}

	err := scan.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	s.mu.Unlock()
}

// Snapshot returns the latest parsed line. After the stream ends every call
// returns an error wrapping ErrSourceUnavailable.
func (s *LineSource) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Snapshot{}, s.err
	}
	if !s.have {
		return Snapshot{}, ErrNoSnapshot
	}
	return s.latest, nil
}

// Close closes the stream and waits for the reader goroutine to exit.
func (s *LineSource) Close() error {
	err := s.rc.Close()
	<-s.done
	return err
}
