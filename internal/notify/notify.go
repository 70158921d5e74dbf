// Package notify delivers claim notifications to the reviewer and user sinks over HTTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/metrics"
	"claim-intake-service/internal/modal"
)

const (
	SinkReviewer = "reviewer"
	SinkUser     = "user"
)

type Notifier struct {
	httpClient  *http.Client
	reviewerURL string
	userURL     string
}

func NewNotifier(reviewerURL, userURL string, timeout time.Duration) *Notifier {
	return &Notifier{
		httpClient:  &http.Client{Timeout: timeout},
		reviewerURL: reviewerURL,
		userURL:     userURL,
	}
}

// NotifyReviewer asks a human to evaluate the claim and resolve the callback.
func (n *Notifier) NotifyReviewer(ctx context.Context, req modal.ReviewRequest) error {
	return n.post(ctx, SinkReviewer, n.reviewerURL, req)
}

// NotifyUser tells the submitter that an interview session is waiting for them.
func (n *Notifier) NotifyUser(ctx context.Context, msg modal.UserNotification) error {
	return n.post(ctx, SinkUser, n.userURL, msg)
}

// post sends body as JSON. A non-2xx answer is permanent; transport failures are
// returned as plain errors so the step retries them.
func (n *Notifier) post(ctx context.Context, sink, url string, body interface{}) (err error) {
	defer func() {
		metrics.Notifications.WithLabelValues(sink, metrics.Outcome(err)).Inc()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return faults.Permanent(faults.TypeInvalidInput, "encode "+sink+" notification", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return faults.Permanent(faults.TypeInvalidInput, "build "+sink+" notification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify %s: %w", sink, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return faults.Permanent(faults.TypeDeliveryRejected,
			fmt.Sprintf("%s sink answered %s", sink, resp.Status), nil, resp.StatusCode)
	}
	return nil
}
