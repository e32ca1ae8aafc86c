package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/model"
	"github.com/gymsched/easyfit_bot/internal/service"
)

// HandleStart handles /start.
func (c *BotController) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	leadHours := int(c.bookings.LeadTime().Hours())
	text := fmt.Sprintf(
		"👋 Hi %s!\n\n"+
			"I book EasyFit classes for you, automatically, %d hours before they start.\n\n"+
			"Commands:\n"+
			"/book - Schedule a booking\n"+
			"/list - Your scheduled bookings\n"+
			"/cancel <id> - Cancel a booking\n"+
			"/help - Full guide",
		update.Message.From.FirstName,
		leadHours,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

// HandleHelp handles /help.
func (c *BotController) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	leadHours := int(c.bookings.LeadTime().Hours())
	text := fmt.Sprintf(
		"📖 EasyFit bot guide\n\n"+
			"I reserve your class exactly %d hours before it starts, the moment "+
			"spots open up. If the class is already full I put you on the waitlist.\n\n"+
			"/book\n"+
			"   Pick a class, a day and a time from the real calendar.\n"+
			"   I'll book it automatically %d hours before.\n\n"+
			"/list\n"+
			"   All your bookings with their status.\n\n"+
			"/cancel <id>\n"+
			"   Cancel a scheduled booking. Example: /cancel 5\n\n"+
			"📲 You get a message the moment I book (or can't).",
		leadHours, leadHours,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

// HandleList handles /list: every booking of the user with its status and,
// for pending ones, the planned trigger time.
func (c *BotController) HandleList(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	bookings, err := c.bookings.ListByUser(ctx, update.Message.From.ID)
	if err != nil {
		c.logger.Error("Failed to list bookings", zap.Error(err), zap.Int64("user_id", update.Message.From.ID))
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Something went wrong, try again."})
		return
	}

	if len(bookings) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📋 You have no bookings.\n\nUse /book to schedule one!",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Your bookings:\n\n")
	for _, booking := range bookings {
		sb.WriteString(fmt.Sprintf("%s #%d - %s\n   📅 %s %s at %s\n   Status: %s\n",
			statusEmoji(booking),
			booking.ID,
			booking.ClassName,
			booking.ClassDate.Weekday().String()[:3],
			booking.ClassDate.Format("02/01"),
			booking.ClassTime,
			statusText(booking),
		))
		if booking.Status == model.BookingStatusPending {
			sb.WriteString(fmt.Sprintf("   ⏰ Will book: %s\n", booking.TriggerAt.Format("02/01 at 15:04")))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("💡 Use /cancel <id> to cancel one")

	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String()})
}

// HandleCancel handles "/cancel <id>".
func (c *BotController) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⚠️ Tell me which booking to cancel.\n\nExample: /cancel 5\n\nUse /list to see the ids.",
		})
		return
	}

	bookingID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ That's not a valid id, use a number."})
		return
	}

	err = c.bookings.Cancel(ctx, update.Message.From.ID, bookingID)
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("❌ Booking #%d not found.", bookingID),
		})
	case errors.Is(err, service.ErrNotCancellable):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("⚠️ Booking #%d is already settled, only pending bookings can be cancelled.", bookingID),
		})
	case err != nil:
		c.logger.Error("Failed to cancel booking", zap.Error(err), zap.Int64("booking_id", bookingID))
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Something went wrong, try again."})
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("✅ Booking #%d cancelled!", bookingID),
		})
	}
}

func statusEmoji(b *model.Booking) string {
	switch b.Status {
	case model.BookingStatusPending:
		return "⏳"
	case model.BookingStatusWaitlisted:
		return "🕐"
	case model.BookingStatusCancelled:
		return "🚫"
	case model.BookingStatusCompleted:
		if b.Outcome == model.OutcomeBooked {
			return "✅"
		}
		return "❌"
	}
	return "❔"
}

func statusText(b *model.Booking) string {
	switch b.Status {
	case model.BookingStatusPending:
		return "Scheduled"
	case model.BookingStatusWaitlisted:
		return "On waitlist"
	case model.BookingStatusCancelled:
		return "Cancelled"
	case model.BookingStatusCompleted:
		switch b.Outcome {
		case model.OutcomeBooked:
			return "Booked"
		case model.OutcomeNotFound:
			return "Failed (class not found)"
		case model.OutcomeClassFull:
			return "Failed (class full)"
		case model.OutcomeExpired:
			return "Failed (too late)"
		}
		return "Done"
	}
	return string(b.Status)
}
