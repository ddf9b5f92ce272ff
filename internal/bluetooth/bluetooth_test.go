package bluetooth

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

const demoTarget = "AA:BB:CC:DD:EE:FF"

type advCounter struct {
	mu     sync.Mutex
	total  int
	target int
}

func (c *advCounter) handle(adv proximity.Advertisement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++

	if adv.Address == demoTarget {
		c.target++
	}
}

func (c *advCounter) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.total, c.target
}

// TestMockScanner_PauseResume checks that a paused mock goes silent.
func TestMockScanner_PauseResume(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		counter := new(advCounter)
		scanner := NewMockScanner(MockOptions{Target: demoTarget, Neighbours: 3, Seed: 7})

		require.NoError(t, scanner.Start(ctx, counter.handle))

		time.Sleep(2*time.Second + time.Millisecond)

		total, target := counter.counts()
		require.Equal(t, 4, target)
		require.Equal(t, 16, total)

		require.NoError(t, scanner.Pause(ctx))
		time.Sleep(5 * time.Second)

		paused, _ := counter.counts()
		require.Equal(t, total, paused)

		require.NoError(t, scanner.Restart(ctx))
		time.Sleep(time.Second + time.Millisecond)

		resumed, _ := counter.counts()
		require.Equal(t, total+8, resumed)

		require.NoError(t, scanner.Stop())
		require.ErrorIs(t, scanner.Resume(ctx), ErrScannerStopped)
	})
}

// TestMockScanner_TargetWalksAway checks the near/far walk of the demo target.
func TestMockScanner_TargetWalksAway(t *testing.T) {
	t.Parallel()

	scanner := NewMockScanner(MockOptions{Target: demoTarget, Period: time.Minute, Seed: 1})

	near := scanner.targetRSSI(0)
	far := scanner.targetRSSI(30)
	back := scanner.targetRSSI(60)

	require.InDelta(t, -52, near, 2)
	require.InDelta(t, -82, far, 2)
	require.InDelta(t, -52, back, 2)

	nearDistance, _ := proximity.EstimateDistance(float64(near), -59, 2.8).Meters()
	farDistance, _ := proximity.EstimateDistance(float64(far), -59, 2.8).Meters()
	require.Less(t, nearDistance, 2.0)
	require.Greater(t, farDistance, 2.0)
}

// TestDiscover_CollectsDevices runs a short discovery against the mock scanner.
func TestDiscover_CollectsDevices(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		scanner := NewMockScanner(MockOptions{Target: demoTarget, TargetName: "Keys", Neighbours: 4, Seed: 3})

		devices, err := Discover(context.Background(), scanner, 5250*time.Millisecond, Estimation{
			ReferenceRSSI:    -59,
			PathLossExponent: 2.8,
		})
		require.NoError(t, err)
		require.Len(t, devices, 5)

		for i := 1; i < len(devices); i++ {
			require.GreaterOrEqual(t, devices[i-1].RSSI, devices[i].RSSI)
		}

		var found bool

		for _, d := range devices {
			require.True(t, d.Distance.Known())
			require.NotEmpty(t, d.DisplayName())

			if d.Address == demoTarget {
				found = true

				require.Equal(t, "Keys", d.Name)
				require.Equal(t, 10, d.Samples)
			}
		}

		require.True(t, found)
	})
}

func TestLookupManufacturer(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Apple", LookupManufacturer(0x004C))
	require.Empty(t, LookupManufacturer(0xFFFF))
	require.Equal(t, "Apple EE:FF", fallbackName(0x004C, demoTarget))
	require.Empty(t, fallbackName(0xFFFF, demoTarget))
	require.Equal(t, "[unnamed]", Device{}.DisplayName())
}
