// internal/browser/session/recorder.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

const networkIdleCheckFrequency = 250 * time.Millisecond

// transferState tracks one network request through its lifecycle. Redirect
// hops overwrite the response fields; the last response observed wins.
type transferState struct {
	url           string
	mimeType      string
	status        int64
	protocol      string
	frameID       string
	encodedLength float64
	finished      bool
	failed        bool
}

// Recorder listens to browser network events and materializes the ordered
// collection of completed transfer records the audit pass consumes. It never
// issues protocol calls of its own; it only observes the event stream.
type Recorder struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu        sync.RWMutex
	transfers map[network.RequestID]*transferState
	order     []network.RequestID
	// inflight is keyed by RequestID so redirect hops, which re-fire
	// requestWillBeSent for the same ID, cannot skew the idle accounting.
	inflight map[network.RequestID]bool
}

// NewRecorder creates a network transfer recorder bound to the session.
func NewRecorder(ctx context.Context, logger *zap.Logger) *Recorder {
	rCtx, rCancel := context.WithCancel(ctx)
	return &Recorder{
		ctx:       rCtx,
		cancel:    rCancel,
		logger:    logger.Named("recorder"),
		transfers: make(map[network.RequestID]*transferState),
		inflight:  make(map[network.RequestID]bool),
	}
}

// Start begins listening to network events on the session's target.
func (r *Recorder) Start(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			r.handleRequestWillBeSent(ev)
		case *network.EventResponseReceived:
			r.handleResponseReceived(ev)
		case *network.EventLoadingFinished:
			r.handleLoadingFinished(ev)
		case *network.EventLoadingFailed:
			r.handleLoadingFailed(ev)
		}
	})
}

// Stop halts event processing. Records gathered so far stay readable.
func (r *Recorder) Stop() {
	r.cancel()
}

// Records returns the transfer records observed so far, in first-seen order.
// Failed transfers are reported with Finished=false so the index filter
// rejects them.
func (r *Recorder) Records() []schemas.NetworkRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]schemas.NetworkRecord, 0, len(r.order))
	for _, id := range r.order {
		t := r.transfers[id]
		if t.url == "" {
			continue
		}
		records = append(records, schemas.NetworkRecord{
			URL:          t.url,
			MimeType:     t.mimeType,
			StatusCode:   t.status,
			Finished:     t.finished && !t.failed,
			ResourceSize: int64(t.encodedLength),
			Protocol:     t.protocol,
			FrameID:      t.frameID,
		})
	}
	return records
}

// WaitNetworkIdle blocks until no requests have been in flight for the quiet
// period, or either context finishes.
func (r *Recorder) WaitNetworkIdle(ctx context.Context, quietPeriod time.Duration) error {
	r.logger.Debug("Waiting for network to become idle.")

	timer := time.NewTimer(quietPeriod)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	isIdle := false

	ticker := time.NewTicker(networkIdleCheckFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.ctx.Done():
			return r.ctx.Err()
		case <-ticker.C:
			r.mu.RLock()
			active := len(r.inflight)
			r.mu.RUnlock()

			if active > 0 {
				if isIdle {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					isIdle = false
				}
			} else if !isIdle {
				timer.Reset(quietPeriod)
				isIdle = true
			}
		case <-timer.C:
			r.logger.Debug("Network is idle.")
			return nil
		}
	}
}

// -- Event Handlers --

func (r *Recorder) handleRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inflight[ev.RequestID] = true

	if _, exists := r.transfers[ev.RequestID]; !exists {
		r.transfers[ev.RequestID] = &transferState{}
		r.order = append(r.order, ev.RequestID)
	}
	// Redirect hops re-fire this event on the same RequestID, so a transfer
	// that redirects and then fails keeps the post-redirect URL with no
	// response fields. Such records stay Finished=false and the record filter
	// downstream rejects them.
	r.transfers[ev.RequestID].url = ev.Request.URL
}

func (r *Recorder) handleResponseReceived(ev *network.EventResponseReceived) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transfers[ev.RequestID]
	if !ok {
		return
	}
	t.url = ev.Response.URL
	t.mimeType = ev.Response.MimeType
	t.status = ev.Response.Status
	t.protocol = ev.Response.Protocol
	t.frameID = ev.FrameID.String()
}

func (r *Recorder) handleLoadingFinished(ev *network.EventLoadingFinished) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.transfers[ev.RequestID]; ok {
		t.finished = true
		t.encodedLength = ev.EncodedDataLength
	}
	delete(r.inflight, ev.RequestID)
}

func (r *Recorder) handleLoadingFailed(ev *network.EventLoadingFailed) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.transfers[ev.RequestID]; ok {
		t.failed = true
		r.logger.Debug("Request failed during page load.",
			zap.String("url", t.url), zap.String("error", ev.ErrorText))
	}
	delete(r.inflight, ev.RequestID)
}
