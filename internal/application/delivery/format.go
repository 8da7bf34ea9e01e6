package delivery

import (
	"fmt"
	"time"

	"github.com/prompt-courier/internal/application/promptsource"
	"github.com/prompt-courier/internal/domain"
	"github.com/prompt-courier/internal/infrastructure/channel"
)

// Static message parts deliberately avoid characters that are reserved in any
// channel's markup, so only the content-derived fields need escaping.
const (
	greetingMorning = "Good morning"
	greetingEvening = "Good evening"
	replyCTA        = "Reply to this message to log your response"
)

// FormatMessage builds the outgoing prompt message. The date line, topic and
// body come from content and are escaped for the channel's markup before
// insertion; they can never alter the message structure.
func FormatMessage(gw channel.Gateway, slot domain.Slot, localNow time.Time, item *promptsource.Item) string {
	greeting := greetingMorning
	if slot == domain.SlotEvening {
		greeting = greetingEvening
	}
	date := gw.Escape(localNow.Format("Monday, January 2, 2006"))
	topic := gw.Escape(item.Topic)
	body := gw.Escape(item.Body)
	return fmt.Sprintf("%s\n%s\n\n*%s*\n\n%s\n\n_%s_", greeting, date, topic, body, replyCTA)
}
