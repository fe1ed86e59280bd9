package round

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
)

const (
	// CallbackPrefix is the prefix for all round callback data
	CallbackPrefix = "spot_"

	ActionPick  = "pick"
	ActionAgain = "again"
)

// EncodeCallback encodes an action and token into callback data.
func EncodeCallback(action, token string) string {
	return fmt.Sprintf("%s%s_%s", CallbackPrefix, action, token)
}

// DecodeCallback decodes callback data into action and token.
func DecodeCallback(data string) (action, token string) {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return "", ""
	}

	parts := strings.SplitN(strings.TrimPrefix(data, CallbackPrefix), "_", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}

// BuildChoicePanel builds the [1] [2] keyboard for the current generation.
func BuildChoicePanel(s Snapshot) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = [][]tele.InlineButton{
		{
			{Text: "1", Data: EncodeCallback(ActionPick, s.Choices[0])},
			{Text: "2", Data: EncodeCallback(ActionPick, s.Choices[1])},
		},
	}
	return markup
}

// BuildRestartPanel builds the play-again keyboard shown after a result.
func BuildRestartPanel(s Snapshot) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = [][]tele.InlineButton{
		{
			{Text: "🔁 Play again", Data: EncodeCallback(ActionAgain, s.Restart)},
		},
	}
	return markup
}

// FormatRoundCaption formats the caption sent with a fresh artifact.
func FormatRoundCaption(level string, idle time.Duration) string {
	msg := "🕵️ SpotAI\n"
	msg += fmt.Sprintf("Level: %s\n", level)
	msg += "Which image is AI-generated? Pick 1 or 2.\n"
	msg += fmt.Sprintf("⏰ %ds to answer", int(idle.Seconds()))
	return msg
}

// ResultView carries what the result caption shows.
type ResultView struct {
	Won       bool
	Score     int64
	Delta     int64
	Streak    int64
	AISlot    int
	Prompt    string
	NewBadges []string
}

// FormatResultCaption formats the caption shown after a choice.
func FormatResultCaption(v ResultView) string {
	got := fmt.Sprintf("%d", v.Delta)
	if v.Delta >= 0 {
		got = "+" + got
	}

	header := "✅ Correct!"
	if !v.Won {
		header = "❌ Wrong!"
	}

	msg := header + "\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("TROPHIES - %d 🏆\n", v.Score)
	msg += fmt.Sprintf("GOT      - %s 🏆\n", got)
	msg += fmt.Sprintf("STREAK   - %d 🔥\n", v.Streak)
	msg += fmt.Sprintf("WHICH    - The image #%d is AI-generated.\n", v.AISlot+1)
	msg += fmt.Sprintf("PROMPT   - %s\n", v.Prompt)
	if len(v.NewBadges) > 0 {
		msg += "━━━━━━━━━━━━━━━\n"
		for _, title := range v.NewBadges {
			msg += fmt.Sprintf("🏅 New badge: %s\n", title)
		}
	}
	return strings.TrimSuffix(msg, "\n")
}

// FormatTimeoutCaption formats the caption of an expired round.
func FormatTimeoutCaption(idle time.Duration) string {
	return fmt.Sprintf("⌛ Timed out after %ds!", int(idle.Seconds()))
}
