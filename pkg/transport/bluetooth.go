package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/matzehuels/pixclock/pkg/errors"
)

// minWriteSize is the ATT payload of the smallest legal MTU.
const minWriteSize = 20

// BluetoothAdapter implements Adapter on the host Bluetooth stack.
type BluetoothAdapter struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	mu    sync.Mutex
	links map[string]*bleLink
}

// NewBluetoothAdapter returns an adapter for the default controller. The
// controller is enabled lazily on first use.
func NewBluetoothAdapter() *BluetoothAdapter {
	a := &BluetoothAdapter{
		adapter: bluetooth.DefaultAdapter,
		links:   make(map[string]*bleLink),
	}
	a.adapter.SetConnectHandler(a.onConnectChange)
	return a
}

func (a *BluetoothAdapter) enable() error {
	a.enableOnce.Do(func() {
		if err := a.adapter.Enable(); err != nil {
			a.enableErr = errors.Wrap(errors.ErrCodeUnsupported, err, "enable bluetooth adapter")
		}
	})
	return a.enableErr
}

// Scan returns the first advertiser whose local name has one of prefixes.
func (a *BluetoothAdapter) Scan(ctx context.Context, prefixes []string) (Device, error) {
	if err := a.enable(); err != nil {
		return Device{}, err
	}

	found := make(chan Device, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.adapter.Scan(func(ad *bluetooth.Adapter, res bluetooth.ScanResult) {
			name := res.LocalName()
			if !MatchesPrefix(name, prefixes) {
				return
			}
			select {
			case found <- Device{Name: name, Address: res.Address.String(), Native: res.Address}:
				_ = ad.StopScan()
			default:
			}
		})
	}()

	select {
	case dev := <-found:
		<-done
		return dev, nil
	case err := <-done:
		if err == nil {
			err = fmt.Errorf("scan stopped")
		}
		return Device{}, errors.Wrap(errors.ErrCodeDeviceNotFound, err, "scan")
	case <-ctx.Done():
		_ = a.adapter.StopScan()
		<-done
		return Device{}, errors.Wrap(errors.ErrCodeDeviceNotFound, ctx.Err(), "no device matching %v", prefixes)
	}
}

// Connect opens a GATT connection and resolves the panel characteristics.
func (a *BluetoothAdapter) Connect(ctx context.Context, dev Device) (Link, error) {
	addr, ok := dev.Native.(bluetooth.Address)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "device %s has no bluetooth address", dev.Name)
	}

	ch := make(chan attempt[bluetooth.Device], 1)
	go func() {
		d, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- attempt[bluetooth.Device]{d, err}
	}()

	d, err := await(ctx, ch, func(late bluetooth.Device) { _ = late.Disconnect() })
	if err != nil {
		return nil, err
	}

	link := &bleLink{device: d, lost: make(chan struct{}), writeSize: minWriteSize}
	if err := link.resolve(); err != nil {
		_ = d.Disconnect()
		return nil, err
	}

	a.mu.Lock()
	a.links[addr.String()] = link
	a.mu.Unlock()
	return link, nil
}

// attempt is the outcome of a blocking call run in its own goroutine.
type attempt[T any] struct {
	v   T
	err error
}

// await returns the outcome from ch, or ctx.Err() if ctx ends first. In
// that case a success that arrives later is passed to release.
func await[T any](ctx context.Context, ch <-chan attempt[T], release func(T)) (T, error) {
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				release(r.v)
			}
		}()
		var zero T
		return zero, ctx.Err()
	}
}

func (a *BluetoothAdapter) onConnectChange(d bluetooth.Device, connected bool) {
	if connected {
		return
	}
	key := d.Address.String()
	a.mu.Lock()
	link := a.links[key]
	delete(a.links, key)
	a.mu.Unlock()
	if link != nil {
		link.markLost()
	}
}

// MatchesPrefix reports whether name starts with any of prefixes.
func MatchesPrefix(name string, prefixes []string) bool {
	if name == "" {
		return false
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// bleLink is a connected panel.
type bleLink struct {
	device    bluetooth.Device
	write     bluetooth.DeviceCharacteristic
	notify    bluetooth.DeviceCharacteristic
	writeSize int

	lostOnce  sync.Once
	lost      chan struct{}
	closeOnce sync.Once
}

func (l *bleLink) resolve() error {
	writeUUID, err := bluetooth.ParseUUID(WriteCharUUID)
	if err != nil {
		return err
	}
	notifyUUID, err := bluetooth.ParseUUID(NotifyCharUUID)
	if err != nil {
		return err
	}

	services, err := l.device.DiscoverServices(nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLinkLost, err, "discover services")
	}

	var haveWrite, haveNotify bool
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{writeUUID, notifyUUID})
		if err != nil {
			continue
		}
		for _, c := range chars {
			switch c.UUID() {
			case writeUUID:
				l.write, haveWrite = c, true
			case notifyUUID:
				l.notify, haveNotify = c, true
			}
		}
	}
	if !haveWrite || !haveNotify {
		return errors.New(errors.ErrCodeUnsupported, "device lacks characteristics %s/%s", WriteCharUUID, NotifyCharUUID)
	}

	if mtu, err := l.write.GetMTU(); err == nil && int(mtu)-3 > minWriteSize {
		l.writeSize = int(mtu) - 3
	}
	return nil
}

// Write sends data in MTU-sized pieces without response.
func (l *bleLink) Write(ctx context.Context, char string, data []byte) error {
	if char != WriteCharUUID {
		return errors.New(errors.ErrCodeInvalidInput, "characteristic %s is not writable", char)
	}
	for pos := 0; pos < len(data); pos += l.writeSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-l.lost:
			return ErrLinkLost
		default:
		}
		end := min(pos+l.writeSize, len(data))
		if _, err := l.write.WriteWithoutResponse(data[pos:end]); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe enables notifications on the notify characteristic.
func (l *bleLink) Subscribe(char string, fn func([]byte)) error {
	if char != NotifyCharUUID {
		return errors.New(errors.ErrCodeInvalidInput, "characteristic %s does not notify", char)
	}
	return l.notify.EnableNotifications(func(buf []byte) {
		// The stack may reuse buf after the callback returns.
		fn(append([]byte(nil), buf...))
	})
}

func (l *bleLink) Lost() <-chan struct{} { return l.lost }

func (l *bleLink) markLost() {
	l.lostOnce.Do(func() { close(l.lost) })
}

// Close disconnects the device.
func (l *bleLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.notify.EnableNotifications(nil)
		err = l.device.Disconnect()
		l.markLost()
	})
	return err
}

var (
	_ Adapter = (*BluetoothAdapter)(nil)
	_ Link    = (*bleLink)(nil)
)
