package controller

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/controller/state"
	"github.com/gymsched/easyfit_bot/internal/easyfit"
)

// HandleBook handles /book: fetch the public calendar and offer the distinct
// class names as inline buttons. Class names can exceed the 64-byte callback
// data limit, so the buttons carry an index into the stored name list.
func (c *BotController) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "🔍 Fetching the EasyFit calendar..."})

	now := time.Now()
	courses, err := c.calendar.Calendar(ctx, nil, now, now.Add(calendarLookahead))
	if err != nil {
		c.logger.Error("Failed to fetch calendar", zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Couldn't fetch the calendar, try again in a few minutes.",
		})
		return
	}

	names := distinctClassNames(courses)
	if len(names) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "ℹ️ No classes available in the next 7 days.",
		})
		return
	}

	c.states.Clear(telegramID)
	c.states.SetData(telegramID, state.KeyCalendar, courses)
	c.states.SetData(telegramID, state.KeyClassNames, names)
	c.states.SetState(telegramID, state.StateBookPickClass)

	var rows [][]models.InlineKeyboardButton
	for i, name := range names {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "📚 " + name,
			CallbackData: cbClass + strconv.Itoa(i),
		}})
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "📚 Which class do you want to book?",
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// HandleClassSelected handles the class button: show the days on which the
// class runs.
func (c *BotController) HandleClassSelected(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback, msg := c.callbackMessage(ctx, b, update)
	if msg == nil {
		return
	}
	telegramID := callback.From.ID

	names, ok := c.storedNames(telegramID)
	idx, err := strconv.Atoi(strings.TrimPrefix(callback.Data, cbClass))
	if !ok || err != nil || idx < 0 || idx >= len(names) {
		c.expireDialog(ctx, b, msg)
		return
	}
	className := names[idx]

	courses, _ := c.storedCalendar(telegramID)
	dates := classDates(courses, className)
	if len(dates) == 0 {
		c.editText(ctx, b, msg, fmt.Sprintf("❌ No %s classes available.", className))
		c.states.Clear(telegramID)
		return
	}

	c.states.SetData(telegramID, state.KeyClassName, className)
	c.states.SetState(telegramID, state.StateBookPickDate)

	var rows [][]models.InlineKeyboardButton
	for _, d := range dates {
		day, _ := time.ParseInLocation("2006-01-02", d, time.Local)
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s %s", day.Weekday().String()[:3], day.Format("02/01")),
			CallbackData: cbDate + d,
		}})
	}

	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        fmt.Sprintf("📚 %s\n\n📅 Which day?", className),
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// HandleDateSelected handles the day button: show the start times of the
// class on that day.
func (c *BotController) HandleDateSelected(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback, msg := c.callbackMessage(ctx, b, update)
	if msg == nil {
		return
	}
	telegramID := callback.From.ID

	dateStr := strings.TrimPrefix(callback.Data, cbDate)
	className, okName := c.storedString(telegramID, state.KeyClassName)
	courses, okCal := c.storedCalendar(telegramID)
	if !okName || !okCal {
		c.expireDialog(ctx, b, msg)
		return
	}

	times := classTimes(courses, className, dateStr)
	if len(times) == 0 {
		c.editText(ctx, b, msg, "❌ No times available on that day.")
		c.states.Clear(telegramID)
		return
	}

	c.states.SetData(telegramID, state.KeyClassDate, dateStr)
	c.states.SetState(telegramID, state.StateBookPickTime)

	var rows [][]models.InlineKeyboardButton
	for _, t := range times {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "🕐 " + t,
			CallbackData: cbTime + t,
		}})
	}

	day, _ := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        fmt.Sprintf("📚 %s\n📅 %s %s\n\n🕐 What time?", className, day.Weekday(), day.Format("02/01/2006")),
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// HandleTimeSelected handles the final button: create the pending booking.
func (c *BotController) HandleTimeSelected(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback, msg := c.callbackMessage(ctx, b, update)
	if msg == nil {
		return
	}
	telegramID := callback.From.ID

	classTime := strings.TrimPrefix(callback.Data, cbTime)
	className, okName := c.storedString(telegramID, state.KeyClassName)
	dateStr, okDate := c.storedString(telegramID, state.KeyClassDate)
	if !okName || !okDate {
		c.expireDialog(ctx, b, msg)
		return
	}

	classDate, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		c.expireDialog(ctx, b, msg)
		return
	}

	booking, err := c.bookings.Schedule(ctx, telegramID, className, classDate, classTime)
	if err != nil {
		c.logger.Error("Failed to schedule booking",
			zap.Error(err),
			zap.Int64("user_id", telegramID),
			zap.String("class_name", className),
		)
		c.editText(ctx, b, msg, "❌ Couldn't save the booking, try again.")
		c.states.Clear(telegramID)
		return
	}

	c.states.Clear(telegramID)

	leadHours := int(c.bookings.LeadTime().Hours())
	c.editText(ctx, b, msg, fmt.Sprintf(
		"✅ Booking scheduled!\n\n"+
			"📚 Class: %s\n"+
			"📅 Date: %s %s\n"+
			"🕐 Time: %s\n\n"+
			"⏰ I'll book it automatically on:\n"+
			"   %s\n"+
			"   (%d hours before)\n\n"+
			"📲 You'll get a message when I do!\n\n"+
			"ID: #%d",
		className,
		classDate.Weekday(), classDate.Format("02/01/2006"),
		classTime,
		booking.TriggerAt.Format("02/01/2006 at 15:04"),
		leadHours,
		booking.ID,
	))
}

// --- helpers ---

// callbackMessage acknowledges the callback and returns its source message.
func (c *BotController) callbackMessage(ctx context.Context, b *bot.Bot, update *models.Update) (*models.CallbackQuery, *models.Message) {
	callback := update.CallbackQuery
	if callback == nil {
		return nil, nil
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callback.ID})

	if callback.Message.Message == nil {
		return callback, nil
	}
	return callback, callback.Message.Message
}

func (c *BotController) editText(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	})
}

// expireDialog handles callbacks arriving after the dialog state is gone,
// e.g. after a bot restart.
func (c *BotController) expireDialog(ctx context.Context, b *bot.Bot, msg *models.Message) {
	c.editText(ctx, b, msg, "⌛ This menu expired, use /book to start over.")
}

func (c *BotController) storedCalendar(telegramID int64) ([]easyfit.Course, bool) {
	v, ok := c.states.GetData(telegramID, state.KeyCalendar)
	if !ok {
		return nil, false
	}
	courses, ok := v.([]easyfit.Course)
	return courses, ok
}

func (c *BotController) storedNames(telegramID int64) ([]string, bool) {
	v, ok := c.states.GetData(telegramID, state.KeyClassNames)
	if !ok {
		return nil, false
	}
	names, ok := v.([]string)
	return names, ok
}

func (c *BotController) storedString(telegramID int64, key string) (string, bool) {
	v, ok := c.states.GetData(telegramID, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func distinctClassNames(courses []easyfit.Course) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, course := range courses {
		if course.Name == "" {
			continue
		}
		if _, dup := seen[course.Name]; dup {
			continue
		}
		seen[course.Name] = struct{}{}
		names = append(names, course.Name)
	}
	sort.Strings(names)
	return names
}

// classDates returns the sorted distinct "2006-01-02" dates on which the
// class has slots.
func classDates(courses []easyfit.Course, className string) []string {
	seen := make(map[string]struct{})
	var dates []string
	forEachSlot(courses, className, func(start time.Time) {
		d := start.Format("2006-01-02")
		if _, dup := seen[d]; dup {
			return
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	})
	sort.Strings(dates)
	return dates
}

// classTimes returns the sorted distinct "15:04" start times of the class on
// the given date.
func classTimes(courses []easyfit.Course, className, dateStr string) []string {
	seen := make(map[string]struct{})
	var times []string
	forEachSlot(courses, className, func(start time.Time) {
		if start.Format("2006-01-02") != dateStr {
			return
		}
		t := start.Format("15:04")
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		times = append(times, t)
	})
	sort.Strings(times)
	return times
}

func forEachSlot(courses []easyfit.Course, className string, fn func(start time.Time)) {
	for _, course := range courses {
		if !strings.EqualFold(course.Name, className) {
			continue
		}
		for _, slot := range course.Slots {
			start, err := slot.Start()
			if err != nil {
				continue
			}
			fn(start)
		}
	}
}
