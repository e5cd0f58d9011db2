package usbdev

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

const (
	reportBufSize    = 64
	controlInterface = 0
)

// sixaxisEnable is the feature payload that switches a DualShock 3 from
// idle to periodic input reporting.
var sixaxisEnable = []byte{0x42, 0x0C, 0x00, 0x00}

// channel owns one claimed USB interface. Input arrives on the interrupt IN
// endpoint; output goes through the interrupt OUT endpoint where the device
// has one and as a control SET_REPORT otherwise.
type channel struct {
	id   pad.Identity
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint

	closeOnce sync.Once
	closed    chan struct{}
}

// openChannel claims interface 0 and resolves its interrupt endpoints.
func openChannel(dev *gousb.Device, id pad.Identity) (*channel, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("auto detach: %w", err)
	}
	cfg, err := dev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	intf, err := cfg.Interface(controlInterface, 0)
	if err != nil {
		_ = cfg.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	c := &channel{
		id:     id,
		dev:    dev,
		cfg:    cfg,
		intf:   intf,
		closed: make(chan struct{}),
	}
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeInterrupt {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			if c.in == nil {
				c.in, err = intf.InEndpoint(ep.Number)
			}
		case gousb.EndpointDirectionOut:
			if c.out == nil {
				c.out, err = intf.OutEndpoint(ep.Number)
			}
		}
		if err != nil {
			c.release()
			return nil, fmt.Errorf("open endpoint %d: %w", ep.Number, err)
		}
	}
	if c.in == nil {
		c.release()
		return nil, errors.New("no interrupt in endpoint")
	}

	if id.Model == pad.ModelDualShock3 {
		if err := c.enableReporting(); err != nil {
			c.release()
			return nil, fmt.Errorf("enable reporting: %w", err)
		}
	}
	return c, nil
}

func (c *channel) NextReport(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, transport.ErrClosed
	default:
	}
	buf := make([]byte, reportBufSize)
	n, err := c.in.ReadContext(ctx, buf)
	if err != nil {
		select {
		case <-c.closed:
			return nil, transport.ErrClosed
		default:
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("usb read: %w", err)
	}
	return buf[:n], nil
}

func (c *channel) SendReport(ctx context.Context, raw []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	if len(raw) == 0 {
		return nil
	}

	var err error
	if c.out != nil && c.id.Model != pad.ModelDualShock3 {
		_, err = c.out.WriteContext(ctx, raw)
	} else {
		// SET_REPORT control write: the report id rides in wValue, the
		// data phase carries the payload without it.
		_, err = c.dev.Control(
			hid.RequestTypeClassInterfaceOut,
			hid.RequestSetReport,
			hid.ReportValue(hid.ReportTypeOutput, raw[0]),
			controlInterface,
			raw[1:],
		)
	}
	if err != nil {
		select {
		case <-c.closed:
			return transport.ErrClosed
		default:
		}
		return fmt.Errorf("usb write: %w", err)
	}
	return nil
}

// Close releases the interface and the device handle. Idempotent.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.release()
	})
	return nil
}

func (c *channel) alive() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *channel) release() {
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		_ = c.cfg.Close()
	}
	_ = c.dev.Close()
}

func (c *channel) enableReporting() error {
	_, err := c.dev.Control(
		hid.RequestTypeClassInterfaceOut,
		hid.RequestSetReport,
		hid.ReportValue(hid.ReportTypeFeature, 0xF4),
		controlInterface,
		sixaxisEnable,
	)
	return err
}
