package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// Device is a sensor head on a serial link. It implements the sampler and
// illumination contracts of the calibration and engine packages.
type Device struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader
	closed bool

	logger logger.Logger
}

// Open opens the serial device at name.
func Open(name string, baud int, timeout time.Duration, opts ...Option) (*Device, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: timeout})
	if err != nil {
		metrics.RecordSensorError("open")
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return NewDevice(port, opts...), nil
}

// NewDevice wraps an already open port.
func NewDevice(port io.ReadWriteCloser, opts ...Option) *Device {
	d := &Device{
		port:   port,
		reader: bufio.NewReader(port),
		logger: logger.Get().Named("sensor"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Read takes one measurement.
func (d *Device) Read(ctx context.Context) (model.RawSample, error) {
	start := time.Now()
	fields, err := d.transact(ctx, "read", FormatCommand(cmdRead))
	if err != nil {
		return model.RawSample{}, err
	}
	s, err := ParseSample(fields)
	if err != nil {
		metrics.RecordSensorError("read")
		return model.RawSample{}, err
	}
	metrics.RecordSensorRead(float64(time.Since(start).Milliseconds()))
	return s, nil
}

// SetGain selects the analog gain.
func (d *Device) SetGain(ctx context.Context, g model.Gain) error {
	_, err := d.transact(ctx, "gain", FormatCommand(cmdGain, g.Multiplier()))
	return err
}

// SetIntegrationTime programs the nearest integration register step.
func (d *Device) SetIntegrationTime(ctx context.Context, ms float64) error {
	_, err := d.transact(ctx, "atime", FormatCommand(cmdATime, int(ATimeFromMillis(ms))))
	return err
}

// SetBrightness sets the illumination level.
func (d *Device) SetBrightness(ctx context.Context, level uint8) error {
	_, err := d.transact(ctx, "led", FormatCommand(cmdLED, int(level)))
	return err
}

// Close releases the port.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.port.Close()
}

func (d *Device) transact(ctx context.Context, op, line string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	if _, err := io.WriteString(d.port, line+"\n"); err != nil {
		metrics.RecordSensorError(op)
		return nil, fmt.Errorf("write %s: %w", op, err)
	}
	answer, err := d.reader.ReadString('\n')
	if err != nil && (err != io.EOF || answer == "") {
		metrics.RecordSensorError(op)
		return nil, fmt.Errorf("read %s answer: %w", op, err)
	}
	fields, err := ParseResponse(answer)
	if err != nil {
		metrics.RecordSensorError(op)
		d.logger.Warn(ctx, "sensor rejected command",
			logger.String("command", line),
			logger.String("answer", strings.TrimSpace(answer)),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fields, nil
}
