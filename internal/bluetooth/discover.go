package bluetooth

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// discoverWindow is the number of samples averaged per discovered device.
const discoverWindow = 5

// Device is a device seen during discovery.
type Device struct {
	// Address is the device address.
	Address string
	// Name is the last non-empty advertised or manufacturer name.
	Name string
	// RSSI is the mean of the last few readings.
	RSSI float64
	// Samples is the number of advertisements received.
	Samples int
	// Distance is the estimate for RSSI.
	Distance proximity.Distance
	// LastSeen is the time of the last advertisement.
	LastSeen time.Time
}

// DisplayName returns the device name or "[unnamed]".
func (d Device) DisplayName() string {
	if d.Name == "" {
		return "[unnamed]"
	}

	return d.Name
}

// Estimation holds the path-loss parameters used to estimate distances during discovery.
type Estimation struct {
	ReferenceRSSI    float64
	PathLossExponent float64
}

// Discover scans for the given duration and returns every device seen, strongest first.
// Cancelling ctx ends the scan early with the devices collected so far.
func Discover(ctx context.Context, scanner proximity.Scanner, duration time.Duration, est Estimation) ([]Device, error) {
	var (
		mu        sync.Mutex
		devices   = make(map[string]*Device)
		smoothers = make(map[string]*proximity.Smoother)
	)

	handle := func(adv proximity.Advertisement) {
		if adv.RSSI == proximity.InvalidRSSI {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		d, ok := devices[adv.Address]
		if !ok {
			d = &Device{Address: adv.Address}
			devices[adv.Address] = d
			smoothers[adv.Address] = proximity.NewSmoother(discoverWindow)
		}

		if adv.Name != "" {
			d.Name = adv.Name
		}

		d.Samples++
		d.LastSeen = adv.Timestamp
		smoothers[adv.Address].Push(adv.RSSI)
	}

	if err := scanner.Start(ctx, handle); err != nil {
		return nil, fmt.Errorf("start discovery: %w", err)
	}

	timer := time.NewTimer(duration)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	timer.Stop()

	if err := scanner.Stop(); err != nil {
		return nil, fmt.Errorf("stop discovery: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	out := make([]Device, 0, len(devices))

	for address, d := range devices {
		mean, _ := smoothers[address].Mean()
		d.RSSI = mean
		d.Distance = proximity.EstimateDistance(mean, est.ReferenceRSSI, est.PathLossExponent)
		out = append(out, *d)
	}

	slices.SortFunc(out, func(a, b Device) int {
		return cmp.Or(cmp.Compare(b.RSSI, a.RSSI), cmp.Compare(a.Address, b.Address))
	})

	return out, nil
}
