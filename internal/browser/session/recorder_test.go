package session

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r := NewRecorder(context.Background(), zaptest.NewLogger(t))
	t.Cleanup(r.Stop)
	return r
}

func sendRequest(r *Recorder, id, url string) {
	r.handleRequestWillBeSent(&network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Request:   &network.Request{URL: url},
	})
}

func sendResponse(r *Recorder, id, url, mimeType string, status int64) {
	r.handleResponseReceived(&network.EventResponseReceived{
		RequestID: network.RequestID(id),
		FrameID:   cdp.FrameID("frame-1"),
		Response:  &network.Response{URL: url, MimeType: mimeType, Status: status, Protocol: "h2"},
	})
}

func sendFinished(r *Recorder, id string, encodedLength float64) {
	r.handleLoadingFinished(&network.EventLoadingFinished{
		RequestID:         network.RequestID(id),
		EncodedDataLength: encodedLength,
	})
}

func sendFailed(r *Recorder, id, reason string) {
	r.handleLoadingFailed(&network.EventLoadingFailed{
		RequestID: network.RequestID(id),
		ErrorText: reason,
	})
}

// Verifies the full lifecycle of one transfer materializes into a finished
// record carrying the response metadata and encoded size.
func TestRecorder_CompletedTransfer(t *testing.T) {
	r := newTestRecorder(t)

	sendRequest(r, "req-1", "https://a.test/x.png")
	sendResponse(r, "req-1", "https://a.test/x.png", "image/png", 200)
	sendFinished(r, "req-1", 4096)

	records := r.Records()
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "https://a.test/x.png", record.URL)
	assert.Equal(t, "image/png", record.MimeType)
	assert.Equal(t, int64(200), record.StatusCode)
	assert.True(t, record.Finished)
	assert.Equal(t, int64(4096), record.ResourceSize)
	assert.Equal(t, "h2", record.Protocol)
	assert.Equal(t, "frame-1", record.FrameID)
}

// Verifies redirect hops on one request ID resolve to the last response
// observed.
func TestRecorder_RedirectLastResponseWins(t *testing.T) {
	r := newTestRecorder(t)

	sendRequest(r, "req-1", "https://a.test/old.png")
	sendResponse(r, "req-1", "https://a.test/old.png", "", 301)
	sendRequest(r, "req-1", "https://a.test/new.png")
	sendResponse(r, "req-1", "https://a.test/new.png", "image/png", 200)
	sendFinished(r, "req-1", 1000)

	records := r.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "https://a.test/new.png", records[0].URL)
	assert.Equal(t, int64(200), records[0].StatusCode)
	assert.True(t, records[0].Finished)
}

// Verifies failed and still-in-flight transfers surface as unfinished, so the
// downstream record filter rejects them.
func TestRecorder_UnfinishedAndFailed(t *testing.T) {
	r := newTestRecorder(t)

	sendRequest(r, "req-1", "https://a.test/pending.png")
	sendResponse(r, "req-1", "https://a.test/pending.png", "image/png", 200)

	sendRequest(r, "req-2", "https://a.test/broken.png")
	sendResponse(r, "req-2", "https://a.test/broken.png", "image/png", 200)
	sendFailed(r, "req-2", "net::ERR_CONNECTION_RESET")

	records := r.Records()
	require.Len(t, records, 2)
	for _, record := range records {
		assert.False(t, record.Finished, record.URL)
	}
}

// Verifies records come back in first-seen request order.
func TestRecorder_Ordering(t *testing.T) {
	r := newTestRecorder(t)

	urls := []string{"https://a.test/1.png", "https://a.test/2.png", "https://a.test/3.png"}
	sendRequest(r, "req-1", urls[0])
	sendRequest(r, "req-2", urls[1])
	sendRequest(r, "req-3", urls[2])
	// Completion order differs from request order.
	sendFinished(r, "req-3", 1)
	sendFinished(r, "req-1", 1)

	records := r.Records()
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, urls[i], record.URL)
	}
}

// Verifies a transfer that redirects and then fails stays unfinished under
// its final URL, so the downstream record filter rejects it.
func TestRecorder_RedirectThenFailed(t *testing.T) {
	r := newTestRecorder(t)

	sendRequest(r, "req-1", "https://a.test/old.png")
	sendRequest(r, "req-1", "https://a.test/new.png")
	sendFailed(r, "req-1", "net::ERR_CONNECTION_RESET")

	records := r.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "https://a.test/new.png", records[0].URL)
	assert.False(t, records[0].Finished)
}

// Verifies WaitNetworkIdle returns once no requests have been in flight for
// the quiet period, and honors cancellation while traffic is still active.
func TestRecorder_WaitNetworkIdle(t *testing.T) {
	t.Run("Idle network returns within the quiet period", func(t *testing.T) {
		r := newTestRecorder(t)

		sendRequest(r, "req-1", "https://a.test/x.png")
		sendFinished(r, "req-1", 1)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, r.WaitNetworkIdle(ctx, 50*time.Millisecond))
	})

	t.Run("Redirect hops do not strand the idle accounting", func(t *testing.T) {
		r := newTestRecorder(t)

		// Two requestWillBeSent events on one ID (a redirect hop) followed by
		// a single loadingFinished must leave nothing in flight.
		sendRequest(r, "req-1", "https://a.test/old.png")
		sendRequest(r, "req-1", "https://a.test/new.png")
		sendResponse(r, "req-1", "https://a.test/new.png", "image/png", 200)
		sendFinished(r, "req-1", 1000)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		require.NoError(t, r.WaitNetworkIdle(ctx, 50*time.Millisecond))
	})

	t.Run("Active request blocks until context expires", func(t *testing.T) {
		r := newTestRecorder(t)

		sendRequest(r, "req-1", "https://a.test/never-finishes.png")

		ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
		defer cancel()

		err := r.WaitNetworkIdle(ctx, 50*time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Stopped recorder unblocks the wait", func(t *testing.T) {
		r := NewRecorder(context.Background(), zaptest.NewLogger(t))

		sendRequest(r, "req-1", "https://a.test/never-finishes.png")

		done := make(chan error, 1)
		go func() {
			done <- r.WaitNetworkIdle(context.Background(), 50*time.Millisecond)
		}()
		r.Stop()

		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("WaitNetworkIdle did not unblock after Stop")
		}
	})
}
