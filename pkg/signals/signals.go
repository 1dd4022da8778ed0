// Package signals is the site pipeline's lifecycle notification bus.
// Plugins connect receivers to a signal at registration time and the host
// sends the signal once the matching lifecycle point is reached.
package signals

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mosaic/pkg/logger"
)

// Signal names a lifecycle event.
type Signal string

// Lifecycle signals sent by the site pipeline
const (
	// Initialized is sent once the host settings are loaded, before any page is rendered.
	Initialized Signal = "initialized"
	// PageRendered is sent after each page has been converted.
	PageRendered Signal = "page_rendered"
	// Finalized is sent after a render run has completed.
	Finalized Signal = "finalized"
)

// Receiver handles a signal. sender is the object the host passes along,
// e.g. the host settings for Initialized.
type Receiver func(ctx context.Context, sender any) error

// Bus dispatches signals to connected receivers in connection order.
// The zero value is ready to use.
type Bus struct {
	mu        sync.RWMutex
	receivers map[Signal][]Receiver
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{receivers: make(map[Signal][]Receiver)}
}

// Connect appends a receiver for sig.
func (b *Bus) Connect(sig Signal, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.receivers == nil {
		b.receivers = make(map[Signal][]Receiver)
	}
	b.receivers[sig] = append(b.receivers[sig], r)
}

// HasReceivers reports whether anything is connected to sig.
func (b *Bus) HasReceivers(sig Signal) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.receivers[sig]) > 0
}

// Send invokes every receiver connected to sig. All receivers run even
// when one fails; their errors are aggregated.
func (b *Bus) Send(ctx context.Context, sig Signal, sender any) error {
	b.mu.RLock()
	receivers := append([]Receiver(nil), b.receivers[sig]...)
	b.mu.RUnlock()

	logger.G(ctx).WithField("signal", sig).WithField("receivers", len(receivers)).Debug("sending signal")

	var result *multierror.Error
	for _, r := range receivers {
		if err := r(ctx, sender); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "%s receiver failed", sig))
		}
	}
	return result.ErrorOrNil()
}
