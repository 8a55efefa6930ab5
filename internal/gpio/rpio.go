package gpio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// RpioFacility drives lines by mapping the BCM2835 register block via
// /dev/gpiomem. Edge detection is polled from a goroutine because the
// register interface has no event delivery.
type RpioFacility struct {
	mu       sync.Mutex
	outputs  []rpio.Pin
	inputs   []rpio.Pin
	edgePoll time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

// NewRpio maps the GPIO registers. edgePoll is how often inputs with an
// edge handler are checked; 0 selects 5ms.
func NewRpio(edgePoll time.Duration) (*RpioFacility, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}
	if edgePoll <= 0 {
		edgePoll = 5 * time.Millisecond
	}
	return &RpioFacility{
		edgePoll: edgePoll,
		stop:     make(chan struct{}),
	}, nil
}

type rpioOutput struct {
	mu  *sync.Mutex
	pin rpio.Pin
}

func (o *rpioOutput) Set(high bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pin.Write(rpioState(high))
	return nil
}

func (o *rpioOutput) Channel() int { return int(o.pin) }

type rpioInput struct {
	mu  *sync.Mutex
	pin rpio.Pin
}

func (i *rpioInput) Get() (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pin.Read() == rpio.High, nil
}

func (i *rpioInput) Channel() int { return int(i.pin) }

// Output configures the pin as an output and drives it to the given level.
func (f *RpioFacility) Output(channel int, high bool) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("request pin %d: facility closed", channel)
	}

	pin := rpio.Pin(channel)
	pin.Output()
	pin.Write(rpioState(high))
	f.outputs = append(f.outputs, pin)
	return &rpioOutput{mu: &f.mu, pin: pin}, nil
}

// Input configures the pin as an input. With onEdge set, edge detection
// is enabled for both edges and polled.
func (f *RpioFacility) Input(channel int, pull Pull, onEdge EdgeHandler) (Input, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("request pin %d: facility closed", channel)
	}

	pin := rpio.Pin(channel)
	pin.Input()
	switch pull {
	case PullUp:
		pin.PullUp()
	case PullDown:
		pin.PullDown()
	default:
		pin.PullOff()
	}
	f.inputs = append(f.inputs, pin)

	if onEdge != nil {
		pin.Detect(rpio.AnyEdge)
		f.wg.Add(1)
		go f.watch(pin, onEdge)
	}
	return &rpioInput{mu: &f.mu, pin: pin}, nil
}

func (f *RpioFacility) watch(pin rpio.Pin, onEdge EdgeHandler) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.edgePoll)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.mu.Lock()
			detected := pin.EdgeDetected()
			high := detected && pin.Read() == rpio.High
			f.mu.Unlock()
			if detected {
				onEdge(high, time.Now())
			}
		}
	}
}

// Close stops edge polling, returns every pin to a pulled-down input and
// unmaps the registers.
func (f *RpioFacility) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.stop)
	f.mu.Unlock()

	f.wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pin := range f.inputs {
		pin.Detect(rpio.NoEdge)
		pin.PullDown()
	}
	for _, pin := range f.outputs {
		pin.Input()
		pin.PullDown()
	}
	f.inputs = nil
	f.outputs = nil

	if err := rpio.Close(); err != nil {
		slog.Error("rpio close failed", "err", err)
		return fmt.Errorf("close rpio: %w", err)
	}
	return nil
}

func rpioState(high bool) rpio.State {
	if high {
		return rpio.High
	}
	return rpio.Low
}
