package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

var ErrPrinterNotPaired = errors.New("printer not paired")

// DeviceOpener opens the printer device at path.
type DeviceOpener func(path string) (io.WriteCloser, error)

// OpenDeviceFile opens a USB line-printer character device such as /dev/usb/lp0.
func OpenDeviceFile(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
}

type PrinterStatus struct {
	DevicePath string `json:"device_path"`
	Connected  bool   `json:"connected"`
	LastError  string `json:"last_error,omitempty"`
	Jobs       int    `json:"jobs"`
}

// PrinterService drives one receipt printer. A failed write triggers a
// single reconnect and retry.
type PrinterService struct {
	mu      sync.Mutex
	open    DeviceOpener
	path    string
	dev     io.WriteCloser
	lastErr error
	jobs    int
	Now     func() time.Time
}

func NewPrinterService(open DeviceOpener) *PrinterService {
	if open == nil {
		open = OpenDeviceFile
	}
	return &PrinterService{open: open, Now: time.Now}
}

// Connect pairs the printer with path and opens it.
func (p *PrinterService) Connect(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev != nil {
		p.dev.Close()
		p.dev = nil
	}
	p.path = path
	return p.connectLocked()
}

// Reconnect reopens the paired device.
func (p *PrinterService) Reconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reconnectLocked()
}

func (p *PrinterService) reconnectLocked() error {
	if p.dev != nil {
		p.dev.Close()
		p.dev = nil
	}
	return p.connectLocked()
}

func (p *PrinterService) connectLocked() error {
	if p.path == "" {
		p.lastErr = ErrPrinterNotPaired
		return ErrPrinterNotPaired
	}
	dev, err := p.open(p.path)
	if err != nil {
		p.lastErr = err
		return opError("printer connect", err)
	}
	p.dev = dev
	p.lastErr = nil
	utils.InfoLogger.Printf("Printer connected at %s", p.path)
	return nil
}

func (p *PrinterService) write(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev == nil {
		if err := p.connectLocked(); err != nil {
			PrintAttempts.WithLabelValues("failed").Inc()
			return err
		}
	}

	_, err := p.dev.Write(payload)
	if err != nil {
		utils.ErrorLogger.Printf("Printer write failed, reconnecting: %v", err)
		if rerr := p.reconnectLocked(); rerr != nil {
			PrintAttempts.WithLabelValues("failed").Inc()
			return rerr
		}
		_, err = p.dev.Write(payload)
	}
	if err != nil {
		p.lastErr = err
		PrintAttempts.WithLabelValues("failed").Inc()
		return opError("print", err)
	}

	p.jobs++
	p.lastErr = nil
	PrintAttempts.WithLabelValues("ok").Inc()
	return nil
}

// PrintOrderTicket prints a kitchen/customer ticket for order.
func (p *PrinterService) PrintOrderTicket(restaurantName string, order *models.Order) error {
	return p.write(escpos(RenderTicket(restaurantName, order, p.Now())))
}

func (p *PrinterService) PrintTestPage() error {
	p.mu.Lock()
	path := p.path
	p.mu.Unlock()
	return p.write(escpos(RenderTestPage(path, p.Now())))
}

func (p *PrinterService) Status() PrinterStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PrinterStatus{DevicePath: p.path, Connected: p.dev != nil, Jobs: p.jobs}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	return st
}

func (p *PrinterService) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return nil
	}
	err := p.dev.Close()
	p.dev = nil
	return err
}

const printerPairingKey = "printer_pairing"

// PrinterRegistry keeps one printer per restaurant and remembers each pairing
// in the preferences table.
type PrinterRegistry struct {
	mu       sync.Mutex
	open     DeviceOpener
	prefs    *PreferenceStore
	printers map[uint]*PrinterService
}

func NewPrinterRegistry(prefs *PreferenceStore, open DeviceOpener) *PrinterRegistry {
	return &PrinterRegistry{open: open, prefs: prefs, printers: make(map[uint]*PrinterService)}
}

// Get returns the restaurant's printer, restoring a saved pairing.
func (r *PrinterRegistry) Get(restaurantID uint) *PrinterService {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.printers[restaurantID]; ok {
		return p
	}
	p := NewPrinterService(r.open)
	if r.prefs != nil {
		if path, err := r.prefs.Get(restaurantOwner(restaurantID), printerPairingKey); err == nil && path != "" {
			p.path = path
		}
	}
	r.printers[restaurantID] = p
	return p
}

// Pair connects the restaurant's printer and saves the pairing.
func (r *PrinterRegistry) Pair(restaurantID uint, path string) error {
	p := r.Get(restaurantID)
	if err := p.Connect(path); err != nil {
		return err
	}
	if r.prefs != nil {
		return r.prefs.Set(restaurantOwner(restaurantID), printerPairingKey, path)
	}
	return nil
}

func (r *PrinterRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.printers {
		p.Close()
	}
}

func restaurantOwner(id uint) string { return fmt.Sprintf("restaurant:%d", id) }

// UserOwner is the preference owner key for a user.
func UserOwner(id uint) string { return fmt.Sprintf("user:%d", id) }
