package bluetooth

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// mockTick is how often the mock scanner advertises every device.
const mockTick = 500 * time.Millisecond

//nolint:gochecknoglobals // Static demo data.
var mockDeviceNames = []string{
	"iPhone 15 Pro",
	"Galaxy S24 Ultra",
	"Pixel 9 Pro",
	"AirPods Pro",
	"MacBook Air",
	"Apple Watch",
	"Fitbit Charge 6",
	"Tile Tracker",
	"iPad Pro",
}

type mockDevice struct {
	address   string
	name      string
	baseRSSI  float64
	phase     float64
	amplitude float64
}

// MockOptions configures the synthetic target device.
type MockOptions struct {
	// Target is the address of the device that walks away and comes back.
	Target string
	// TargetName is its advertised name.
	TargetName string
	// Period is the duration of one near-far-near walk.
	Period time.Duration
	// NearRSSI and FarRSSI bound the target's signal.
	NearRSSI float64
	FarRSSI  float64
	// Neighbours is the number of background devices.
	Neighbours int
	// Seed makes the background devices reproducible; zero picks one at random.
	Seed uint64
}

// MockScanner generates advertisements for demo mode: background devices with a
// noisy sinusoidal RSSI and a target that periodically leaves the room.
type MockScanner struct {
	opts    MockOptions
	rnd     *rand.Rand
	devices []mockDevice

	mu      sync.Mutex
	handle  func(proximity.Advertisement)
	cancel  context.CancelFunc
	done    chan struct{}
	elapsed float64
	stopped bool
}

// NewMockScanner creates a mock scanner. Zero option values get demo defaults.
func NewMockScanner(opts MockOptions) *MockScanner {
	if opts.Period <= 0 {
		opts.Period = 3 * time.Minute
	}

	if opts.NearRSSI == 0 {
		opts.NearRSSI = -52
	}

	if opts.FarRSSI == 0 {
		opts.FarRSSI = -82
	}

	if opts.TargetName == "" {
		opts.TargetName = "Demo Beacon"
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // Demo data.

	devices := make([]mockDevice, 0, opts.Neighbours)
	for _, i := range rnd.Perm(len(mockDeviceNames))[:min(opts.Neighbours, len(mockDeviceNames))] {
		devices = append(devices, mockDevice{
			address:   randomMAC(rnd),
			name:      mockDeviceNames[i],
			baseRSSI:  -40 - rnd.Float64()*50,
			phase:     rnd.Float64() * 2 * math.Pi,
			amplitude: 3 + rnd.Float64()*8,
		})
	}

	return &MockScanner{opts: opts, rnd: rnd, devices: devices}
}

// Start begins emitting advertisements.
func (s *MockScanner) Start(_ context.Context, handle func(proximity.Advertisement)) error {
	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()

	return s.Resume(context.Background())
}

// Pause stops emitting and waits for the emitter to exit.
func (s *MockScanner) Pause(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for mock scan to stop: %w", ctx.Err())
	}
}

// Resume starts emitting again if paused.
func (s *MockScanner) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrScannerStopped
	}

	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go s.loop(ctx, done)

	return nil
}

// Restart pauses and resumes the emitter.
func (s *MockScanner) Restart(ctx context.Context) error {
	if err := s.Pause(ctx); err != nil {
		return err
	}

	return s.Resume(ctx)
}

// Stop ends the emitter for good.
func (s *MockScanner) Stop() error {
	err := s.Pause(context.Background())

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	return err
}

func (s *MockScanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(mockTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit()
		}
	}
}

func (s *MockScanner) emit() {
	s.mu.Lock()
	s.elapsed += mockTick.Seconds()
	t := s.elapsed
	handle := s.handle
	s.mu.Unlock()

	if handle == nil {
		return
	}

	now := time.Now()

	for _, d := range s.devices {
		rssi := d.baseRSSI + d.amplitude*math.Sin(t*0.5+d.phase) + (s.noise()-0.5)*4
		handle(proximity.Advertisement{Address: d.address, Name: d.name, RSSI: int16(rssi), Timestamp: now})
	}

	if s.opts.Target != "" {
		handle(proximity.Advertisement{
			Address:   s.opts.Target,
			Name:      s.opts.TargetName,
			RSSI:      s.targetRSSI(t),
			Timestamp: now,
		})
	}
}

// targetRSSI walks the target from near to far and back over one period.
func (s *MockScanner) targetRSSI(t float64) int16 {
	phase := math.Mod(t, s.opts.Period.Seconds()) / s.opts.Period.Seconds()
	// 0 at the start of the period, 1 halfway through.
	away := (1 - math.Cos(2*math.Pi*phase)) / 2
	rssi := s.opts.NearRSSI + (s.opts.FarRSSI-s.opts.NearRSSI)*away + (s.noise()-0.5)*3

	return int16(math.Round(rssi))
}

func (s *MockScanner) noise() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rnd.Float64()
}

func randomMAC(rnd *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rnd.IntN(256))
	}

	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

var _ proximity.Scanner = (*MockScanner)(nil)
