//go:build linux

package uinput

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/platform"
)

// DevicePath is the uinput control node.
const DevicePath = "/dev/uinput"

// ioctl requests from linux/uinput.h.
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiSetAbsBit  = 0x40045567
	uiSetPropBit = 0x4004556e

	inputPropDirect = 0x01
	busVirtual      = 0x06
)

// userDev matches struct uinput_user_dev.
type userDev struct {
	Name         [80]byte
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FFEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// inputEvent matches the Linux input_event struct.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type device struct {
	f *os.File
}

func openDevice(name string, configure func(fd int) error, dev *userDev) (*device, error) {
	fd, err := unix.Open(DevicePath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DevicePath, err)
	}
	f := os.NewFile(uintptr(fd), DevicePath)
	if err := configure(fd); err != nil {
		f.Close()
		return nil, fmt.Errorf("configure %s: %w", name, err)
	}
	copy(dev.Name[:len(dev.Name)-1], name)
	dev.Bustype = busVirtual
	dev.Vendor = 0x1209
	dev.Version = 1
	if err := binary.Write(f, binary.NativeEndian, dev); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s setup: %w", name, err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &device{f: f}, nil
}

func (d *device) write(events []rawEvent) error {
	if len(events) == 0 {
		return nil
	}
	var tv unix.Timeval
	if err := unix.Gettimeofday(&tv); err != nil {
		return fmt.Errorf("gettimeofday: %w", err)
	}
	buf := make([]inputEvent, len(events))
	for i, ev := range events {
		buf[i] = inputEvent{Time: tv, Type: ev.Type, Code: ev.Code, Value: ev.Value}
	}
	if err := binary.Write(d.f, binary.NativeEndian, buf); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

func (d *device) close() error {
	_ = unix.IoctlSetInt(int(d.f.Fd()), uiDevDestroy, 0)
	return d.f.Close()
}

func setBits(fd int, req uint, codes ...int) error {
	for _, c := range codes {
		if err := unix.IoctlSetInt(fd, req, c); err != nil {
			return err
		}
	}
	return nil
}

func configurePointer(fd int) error {
	if err := setBits(fd, uiSetEvBit, evKey, evRel, evSyn); err != nil {
		return err
	}
	keys := []int{btnLeft, btnRight, btnMiddle}
	for code := 1; code < 256; code++ {
		keys = append(keys, code)
	}
	if err := setBits(fd, uiSetKeyBit, keys...); err != nil {
		return err
	}
	return setBits(fd, uiSetRelBit, relX, relY)
}

func configureTouch(fd int) error {
	if err := setBits(fd, uiSetEvBit, evKey, evAbs, evSyn); err != nil {
		return err
	}
	if err := setBits(fd, uiSetKeyBit, btnTouch); err != nil {
		return err
	}
	if err := setBits(fd, uiSetAbsBit, absX, absY, absMTSlot, absMTPositionX, absMTPositionY, absMTTrackingID); err != nil {
		return err
	}
	return setBits(fd, uiSetPropBit, inputPropDirect)
}

func touchSetup(screen platform.Bounds) *userDev {
	dev := &userDev{}
	w, h := int32(screen.Width-1), int32(screen.Height-1)
	dev.Absmax[absX], dev.Absmax[absY] = w, h
	dev.Absmax[absMTPositionX], dev.Absmax[absMTPositionY] = w, h
	dev.Absmax[absMTSlot] = maxSlots - 1
	dev.Absmax[absMTTrackingID] = 65535
	return dev
}

// Injector writes events to two virtual devices: a keyboard with a relative
// mouse, and a direct-touch multitouch screen.
type Injector struct {
	mu      sync.Mutex
	pointer *device
	touch   *device
	enc     *encoder
}

// Open creates the virtual devices. screen sets the absolute axis range.
func Open(screen platform.Bounds) (*Injector, error) {
	pointer, err := openDevice("a11y-chain pointer", configurePointer, &userDev{})
	if err != nil {
		return nil, err
	}
	touch, err := openDevice("a11y-chain touch", configureTouch, touchSetup(screen))
	if err != nil {
		pointer.close()
		return nil, err
	}
	return &Injector{pointer: pointer, touch: touch, enc: newEncoder(screen)}, nil
}

func (i *Injector) InjectPointer(ev *model.PointerEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if ev.Source == model.SourceTouchscreen {
		return i.touch.write(i.enc.touch(ev))
	}
	return i.pointer.write(i.enc.mouse(ev))
}

func (i *Injector) InjectKey(ev *model.KeyEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pointer.write(i.enc.key(ev))
}

func (i *Injector) MoveCursor(offsetX, offsetY int32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pointer.write(i.enc.move(offsetX, offsetY))
}

func (i *Injector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	err := i.pointer.close()
	if terr := i.touch.close(); err == nil {
		err = terr
	}
	return err
}
