package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klimaz/starlotto/internal/models"
)

// Notifier delivers draw results to every participant of a settled
// room. Delivery is best-effort: a failed send is logged and the
// remaining participants are still notified.
type Notifier struct {
	client *Client
}

// NewNotifier creates a Notifier on top of the Bot API client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Notify messages the winner and the losers of the room.
func (n *Notifier) Notify(ctx context.Context, rec *models.SettlementRecord, participants []models.Participant) error {
	var failed int
	for _, p := range participants {
		var text string
		if p.UserID == rec.WinnerID {
			text = winnerText(rec)
		} else {
			text = loserText(rec)
		}
		if err := n.client.SendMessage(ctx, p.UserID, text); err != nil {
			failed++
			slog.Warn("result message not delivered",
				"room_id", rec.RoomID,
				"user_id", p.UserID,
				"error", err,
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("delivery failed for %d of %d participants", failed, len(participants))
	}
	return nil
}

func winnerText(rec *models.SettlementRecord) string {
	return fmt.Sprintf(
		"🎉 <b>Congratulations, you won!</b> 🎉\n\n"+
			"💰 Prize: <b>%d ⭐</b>\n"+
			"🎲 Room: <code>%s</code>\n\n"+
			"Your winnings will be credited shortly.",
		rec.WinnerAmount, shortID(rec.RoomID),
	)
}

func loserText(rec *models.SettlementRecord) string {
	name := rec.WinnerFirstName
	if name == "" {
		name = rec.WinnerUsername
	}
	return fmt.Sprintf(
		"😔 No luck this time.\n\n"+
			"🏆 Winner: <b>%s</b>\n"+
			"💰 Prize: <b>%d ⭐</b>\n"+
			"🎲 Room: <code>%s</code>\n\n"+
			"Better luck next round!",
		name, rec.WinnerAmount, shortID(rec.RoomID),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
