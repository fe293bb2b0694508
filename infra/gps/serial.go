package gps

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	goserial "go.bug.st/serial"

	coregps "github.com/pitwall/vtms/core/gps"
	"github.com/pitwall/vtms/core/state"
	"github.com/pitwall/vtms/infra/logger"
)

// ErrNoReceiver is returned when no serial port carries NMEA data.
var ErrNoReceiver = errors.New("gps: no receiver found")

// knotsToMS converts NMEA ground speed to meters per second.
const knotsToMS = 0.514444

// DefaultBaud is the rate most USB GPS receivers ship with.
const DefaultBaud = 9600

const probeReadTimeout = 2 * time.Second

// SerialSource reads NMEA sentences from a serial GPS receiver and merges
// them into a running fix. Partial sentences update only the channels they
// carry; the rest of the fix keeps its last known values.
type SerialSource struct {
	rc    io.ReadCloser
	br    *bufio.Reader
	fix   coregps.Fix
	flags *state.Flags
	log   logger.Logger
}

// NewSerialSource opens the configured port, or scans for one when the port
// is empty. Each candidate is probed for NMEA traffic before being accepted.
func NewSerialSource(port string, baud int, flags *state.Flags, log logger.Logger) (*SerialSource, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	candidates := []string{port}
	if port == "" {
		found, err := DiscoverPorts()
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, ErrNoReceiver
		}
		candidates = found
	}

	mode := &goserial.Mode{BaudRate: baud, DataBits: 8, Parity: goserial.NoParity, StopBits: goserial.OneStopBit}
	for _, name := range candidates {
		p, err := goserial.Open(name, mode)
		if err != nil {
			log.Warnf("failed to open GPS port %s: %v", name, err)
			continue
		}
		_ = p.SetReadTimeout(probeReadTimeout)
		if !probe(p) {
			log.Warnf("no valid NMEA data found on %s", name)
			_ = p.Close()
			continue
		}
		_ = p.SetReadTimeout(goserial.NoTimeout)
		log.Infof("GPS connected on %s", name)
		return NewReaderSource(p, flags, log), nil
	}
	return nil, ErrNoReceiver
}

// NewReaderSource wraps an NMEA byte stream. Used by NewSerialSource and by
// tests that feed canned sentences.
func NewReaderSource(rc io.ReadCloser, flags *state.Flags, log logger.Logger) *SerialSource {
	return &SerialSource{rc: rc, br: bufio.NewReader(rc), flags: flags, log: log}
}

// DiscoverPorts lists serial ports that look like USB GPS receivers.
func DiscoverPorts() ([]string, error) {
	names, err := goserial.GetPortsList()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if strings.Contains(n, "ttyACM") {
			out = append(out, n)
		}
	}
	return out, nil
}

// Next reads sentences until one parses, merges it and returns the updated
// fix. Lines that are not NMEA or fail to parse are skipped. A blocked read
// is released by Close.
func (s *SerialSource) Next(ctx context.Context) (coregps.Fix, error) {
	for {
		if err := ctx.Err(); err != nil {
			return coregps.Fix{}, err
		}
		line, err := s.br.ReadString('\n')
		if err != nil {
			return coregps.Fix{}, err
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		msg, err := nmea.Parse(line)
		if err != nil {
			if s.flags != nil && s.flags.Debug() {
				s.log.Debugf("failed to parse NMEA sentence %q: %v", line, err)
			}
			continue
		}
		s.merge(msg)
		return s.fix, nil
	}
}

// Close releases the underlying port and unblocks a pending read.
func (s *SerialSource) Close() error {
	return s.rc.Close()
}

func (s *SerialSource) merge(msg nmea.Sentence) {
	switch m := msg.(type) {
	case nmea.RMC:
		s.mergePosition(m.Latitude, m.Longitude)
		if m.Speed != 0 {
			s.fix.SpeedMS = m.Speed * knotsToMS
			s.fix.HasSpeed = true
		}
		if m.Course != 0 {
			s.fix.Track = m.Course
			s.fix.HasTrack = true
		}
	case nmea.GGA:
		s.mergePosition(m.Latitude, m.Longitude)
		if m.Altitude != 0 {
			s.fix.Altitude = m.Altitude
			s.fix.HasAltitude = true
		}
	case nmea.GLL:
		s.mergePosition(m.Latitude, m.Longitude)
	case nmea.VTG:
		if m.GroundSpeedKnots != 0 {
			s.fix.SpeedMS = m.GroundSpeedKnots * knotsToMS
			s.fix.HasSpeed = true
		}
		if m.TrueTrack != 0 {
			s.fix.Track = m.TrueTrack
			s.fix.HasTrack = true
		}
	}
}

// mergePosition treats 0,0 as no fix, the way receivers report it before
// acquiring satellites.
func (s *SerialSource) mergePosition(lat, lon float64) {
	if lat == 0 || lon == 0 {
		return
	}
	s.fix.Latitude = lat
	s.fix.Longitude = lon
	s.fix.HasPosition = true
	s.fix.Time = time.Now()
}

// probe reads a few chunks and reports whether the stream looks like NMEA.
// Two sentence-shaped lines are enough to accept the port.
func probe(r io.Reader) bool {
	buf := make([]byte, 256)
	var data []byte
	empty := 0
	for i := 0; i < 20; i++ {
		n, err := r.Read(buf)
		if err != nil {
			return false
		}
		if n == 0 {
			// Serial read timeout.
			empty++
			if empty >= 3 {
				return false
			}
			continue
		}
		data = append(data, buf[:n]...)
		valid := 0
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "$") && strings.Contains(line, ",") {
				valid++
			}
		}
		if valid >= 2 {
			return true
		}
		if len(data) > 4096 {
			return false
		}
	}
	return false
}
