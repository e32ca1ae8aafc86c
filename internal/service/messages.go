package service

import (
	"fmt"

	"github.com/gymsched/easyfit_bot/internal/model"
)

// User-facing notification texts for fulfillment outcomes.

func bookedText(b *model.Booking) string {
	return fmt.Sprintf(
		"✅ Booking confirmed!\n\n📚 %s\n📅 %s at %s\n\nSee you at the gym! 💪",
		b.ClassName, b.ClassDate.Format("02/01/2006"), b.ClassTime,
	)
}

func waitlistedText(b *model.Booking) string {
	return fmt.Sprintf(
		"⏳ Class was full, you are on the waitlist.\n\n📚 %s\n📅 %s at %s\n\nYou'll move up automatically if a spot frees.",
		b.ClassName, b.ClassDate.Format("02/01/2006"), b.ClassTime,
	)
}

func notFoundText(b *model.Booking) string {
	return fmt.Sprintf(
		"❌ Couldn't book: the class was not on the calendar.\n\n📚 %s\n📅 %s at %s\n\nCheck the EasyFit app, it may have been cancelled.",
		b.ClassName, b.ClassDate.Format("02/01/2006"), b.ClassTime,
	)
}

func classFullText(b *model.Booking) string {
	return fmt.Sprintf(
		"❌ Couldn't book: class full and no waitlist available.\n\n📚 %s\n📅 %s at %s\n\nTry manually on the EasyFit app.",
		b.ClassName, b.ClassDate.Format("02/01/2006"), b.ClassTime,
	)
}

func expiredText(b *model.Booking) string {
	return fmt.Sprintf(
		"❌ Couldn't book: the class already started before I managed to reserve it.\n\n📚 %s\n📅 %s at %s",
		b.ClassName, b.ClassDate.Format("02/01/2006"), b.ClassTime,
	)
}
