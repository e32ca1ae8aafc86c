package controller

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/controller/state"
	"github.com/gymsched/easyfit_bot/internal/easyfit"
	"github.com/gymsched/easyfit_bot/internal/service"
)

// Callback data patterns for the booking flow.
const (
	cbClass = "book_class:" // book_class:<index into stored class names>
	cbDate  = "book_date:"  // book_date:2006-01-02
	cbTime  = "book_time:"  // book_time:15:04
)

// calendarLookahead is how far ahead /book offers classes.
const calendarLookahead = 7 * 24 * time.Hour

// Calendar is the read-only slice of the EasyFit client the menu needs. The
// course calendar endpoint is public, so no session is involved here.
type Calendar interface {
	Calendar(ctx context.Context, session *easyfit.Session, from, to time.Time) ([]easyfit.Course, error)
}

type BotController struct {
	bot      *bot.Bot
	bookings *service.BookingService
	calendar Calendar
	states   *state.Manager
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	bookings *service.BookingService,
	calendar Calendar,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		bookings: bookings,
		calendar: calendar,
		states:   state.NewManager(),
		logger:   logger,
	}
}

// RegisterHandlers wires up all commands and callbacks.
func (c *BotController) RegisterHandlers(ctx context.Context) {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.HandleBook)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/list", bot.MatchTypeExact, c.HandleList)
	// /cancel takes an id argument, so match by prefix.
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, c.HandleCancel)

	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbClass, bot.MatchTypePrefix, c.HandleClassSelected)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbDate, bot.MatchTypePrefix, c.HandleDateSelected)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbTime, bot.MatchTypePrefix, c.HandleTimeSelected)
}
