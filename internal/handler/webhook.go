package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/service"
	"github.com/klimaz/starlotto/internal/telegram"
)

// webhook handles Bot API updates: pre-checkout approval and confirmed
// payments. Telegram re-delivers on non-2xx, so validation failures
// answer 200; only transient faults (failed ledger writes) return 500
// to request a retry.
func (h *HTTPHandler) webhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	switch {
	case update.PreCheckoutQuery != nil:
		h.handlePreCheckout(c, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		h.handleSuccessfulPayment(c, update.Message)
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// handlePreCheckout rejects the payment up front when the user is
// already in an active room, so they are not charged for an entry the
// admission layer would refuse.
func (h *HTTPHandler) handlePreCheckout(c *gin.Context, query *telegram.PreCheckoutQuery) {
	var payload telegram.InvoicePayload
	if err := json.Unmarshal([]byte(query.InvoicePayload), &payload); err != nil {
		slog.Warn("malformed invoice payload in pre-checkout", "query_id", query.ID, "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx := c.Request.Context()
	if h.registry.UserInActiveRoom(payload.UserID) {
		err := h.tg.AnswerPreCheckoutQuery(ctx, query.ID, false,
			"You are already in an active room. Please wait for it to complete.")
		if err != nil {
			slog.Error("pre-checkout decline not delivered", "query_id", query.ID, "error", err)
		}
	} else if err := h.tg.AnswerPreCheckoutQuery(ctx, query.ID, true, ""); err != nil {
		slog.Error("pre-checkout approval not delivered", "query_id", query.ID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *HTTPHandler) handleSuccessfulPayment(c *gin.Context, msg *telegram.Message) {
	payment := msg.SuccessfulPayment

	var payload telegram.InvoicePayload
	if err := json.Unmarshal([]byte(payment.InvoicePayload), &payload); err != nil {
		slog.Error("malformed invoice payload in payment",
			"charge_id", payment.TelegramPaymentChargeID, "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ev := service.PaymentEvent{
		UserID:     payload.UserID,
		EntryFee:   payload.EntryFee,
		PaymentRef: payment.TelegramPaymentChargeID,
	}
	if msg.From != nil {
		ev.Username = msg.From.Username
		ev.FirstName = msg.From.FirstName
		ev.LastName = msg.From.LastName
	}

	ctx := c.Request.Context()
	res, err := h.admission.OnPaymentConfirmed(ctx, ev)
	if err != nil {
		if isValidationErr(err) {
			// Re-delivery would be rejected the same way; acknowledge.
			c.JSON(http.StatusOK, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "join not recorded"})
		return
	}

	text := fmt.Sprintf(
		"✅ Payment successful! You joined the lottery room.\n\n"+
			"Entry fee: %d ⭐\nRoom: %s\nWaiting for other participants...",
		ev.EntryFee, shortRoomID(res.Room.ID),
	)
	if err := h.tg.SendMessage(ctx, ev.UserID, text); err != nil {
		slog.Warn("join confirmation not delivered", "user_id", ev.UserID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "room_id": res.Room.ID})
}

func isValidationErr(err error) bool {
	return errors.Is(err, models.ErrDuplicatePayment) ||
		errors.Is(err, models.ErrUserInActiveRoom) ||
		errors.Is(err, models.ErrAlreadyJoined) ||
		errors.Is(err, models.ErrInvalidEntryFee) ||
		errors.Is(err, models.ErrRoomFull) ||
		errors.Is(err, models.ErrInvalidState)
}

func shortRoomID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
