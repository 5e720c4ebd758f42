package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(seq uint64) *Frame {
	return &Frame{Data: []byte{byte(seq)}, Seq: seq, Timestamp: time.Now()}
}

func TestDistributorLatest(t *testing.T) {
	d := NewDistributor()
	assert.Nil(t, d.Latest())

	d.Publish(testFrame(1))
	d.Publish(testFrame(2))
	require.NotNil(t, d.Latest())
	assert.Equal(t, uint64(2), d.Latest().Seq)
}

// A consumer that keeps up observes every sequence number exactly once and
// in increasing order.
func TestPromptConsumerSeesEveryFrame(t *testing.T) {
	d := NewDistributor()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan uint64, 10)
	go func() {
		var last uint64
		for {
			f, err := d.Next(ctx, last)
			if err != nil {
				close(got)
				return
			}
			last = f.Seq
			got <- f.Seq
		}
	}()

	for seq := uint64(1); seq <= 10; seq++ {
		d.Publish(testFrame(seq))
		// Wait for the consumer before the next publish so it never lags.
		select {
		case observed := <-got:
			require.Equal(t, seq, observed)
		case <-ctx.Done():
			t.Fatal("consumer did not observe frame in time")
		}
	}
}

// A consumer polling slower than the publish rate observes a strictly
// increasing, possibly non-contiguous subsequence: never a repeat, never a
// decrease.
func TestSlowConsumerSkipsButNeverRepeats(t *testing.T) {
	d := NewDistributor()
	ctx := context.Background()

	var observed []uint64
	var last uint64
	for seq := uint64(1); seq <= 10; seq++ {
		d.Publish(testFrame(seq))
		// Poll every third publish only.
		if seq%3 == 0 {
			f, err := d.Next(ctx, last)
			require.NoError(t, err)
			require.Greater(t, f.Seq, last)
			last = f.Seq
			observed = append(observed, f.Seq)
		}
	}

	require.NotEmpty(t, observed)
	for i := 1; i < len(observed); i++ {
		assert.Greater(t, observed[i], observed[i-1])
	}
}

// Next returns only frames strictly newer than the cursor even when the
// consumer re-polls without a new publish.
func TestNextBlocksUntilNewerFrame(t *testing.T) {
	d := NewDistributor()
	d.Publish(testFrame(1))

	f, err := d.Next(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq)

	// No newer frame yet: the call must block until one arrives.
	done := make(chan *Frame, 1)
	go func() {
		f, _ := d.Next(context.Background(), 1)
		done <- f
	}()

	select {
	case <-done:
		t.Fatal("Next returned without a newer frame")
	case <-time.After(50 * time.Millisecond):
	}

	d.Publish(testFrame(2))
	select {
	case f := <-done:
		assert.Equal(t, uint64(2), f.Seq)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake on publish")
	}
}

// A consumer disconnecting mid-wait detaches immediately and leaks nothing.
func TestNextCancellation(t *testing.T) {
	d := NewDistributor()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := d.Next(ctx, 0)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Next did not detach on cancellation")
	}
}

// Publish must not block regardless of how many consumers are mid-wait.
func TestPublishNonBlocking(t *testing.T) {
	d := NewDistributor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 50; i++ {
		go d.Next(ctx, 0) //nolint:errcheck
	}

	start := time.Now()
	for seq := uint64(1); seq <= 1000; seq++ {
		d.Publish(testFrame(seq))
	}
	assert.Less(t, time.Since(start), time.Second)
}
