// This file implements the payment gateway webhook endpoint. It is not behind
// any auth middleware -- the gateway calls it directly. Security is provided
// by verifying the X-Razorpay-Signature header over the raw body.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fitleague/internal/core"
	"fitleague/internal/types"
)

// maxWebhookBodySize caps the accepted webhook payload (64 KB). Gateway event
// payloads are small; the limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// eventPaymentCaptured is the gateway event signalling a completed payment.
const eventPaymentCaptured = "payment.captured"

// WebhookVerifier authenticates a raw webhook payload against its transport
// signature. Implemented by external.RazorpayClient.
type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// CaptureFlow activates a league from a server-to-server capture event.
// Implemented by league.Orchestrator.
type CaptureFlow interface {
	ConfirmCapturedPayment(ctx context.Context, orderID, paymentID string) (*types.League, error)
}

// webhookEvent is the subset of the gateway event envelope this service
// consumes.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookHandler processes asynchronous payment events from the gateway.
// It is the server-to-server backstop for the client-side verify flow: a
// capture event activates the league even when the client never completes
// the callback.
type WebhookHandler struct {
	verifier WebhookVerifier
	flow     CaptureFlow
	logger   *slog.Logger
}

func NewWebhookHandler(verifier WebhookVerifier, flow CaptureFlow, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{verifier: verifier, flow: flow, logger: logger}
}

// RegisterRoutes mounts the webhook endpoint. Kept separate from the league
// routes because webhook routes are public.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/webhook", h.Handle)
}

// Handle verifies and processes a gateway webhook delivery.
//
// The gateway retries any non-2xx response. Terminal outcomes (replay
// conflicts, reconciliation failures that need an operator) are acknowledged
// with 200 after logging so the gateway stops redelivering; everything else
// surfaces as an error status so transient faults get retried.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"failed to read request body",
			err,
		))
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" || !h.verifier.VerifyWebhookSignature(payload, signature) {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed",
			slog.Bool("signature_present", signature != ""),
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodePaymentSignatureInvalid,
			"webhook signature verification failed",
			nil,
		))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"invalid webhook event JSON",
			err,
		))
		return
	}

	if event.Event != eventPaymentCaptured {
		h.logger.InfoContext(r.Context(), "ignoring unhandled webhook event",
			slog.String("event", event.Event),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	paymentID := event.Payload.Payment.Entity.ID
	orderID := event.Payload.Payment.Entity.OrderID
	if paymentID == "" || orderID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"capture event is missing payment or order id",
			nil,
		))
		return
	}

	if _, err := h.flow.ConfirmCapturedPayment(r.Context(), orderID, paymentID); err != nil {
		if isTerminalWebhookError(err) {
			h.logger.ErrorContext(r.Context(), "webhook capture processing failed terminally",
				slog.String("order_id", orderID),
				slog.String("payment_id", paymentID),
				slog.String("error", err.Error()),
			)
			w.WriteHeader(http.StatusOK)
			return
		}
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// isTerminalWebhookError reports whether redelivering the event could not
// change the outcome.
func isTerminalWebhookError(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case types.ErrCodeConflictLeagueState, types.ErrCodeInternalReconciliation:
		return true
	}
	return false
}
