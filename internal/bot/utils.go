package bot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/wb"
)

/*** HELPERS ***/

func (b *Bot) send(msg tgbotapi.Chattable) tgbotapi.Message {
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("send failed", "err", err)
	}
	return sent
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID <= 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message failed", "chat", chatID, "mid", messageID, "err", err)
	}
}

// deleteAndSend убирает предыдущий экран и рисует новый, чтобы в чате не
// копились сообщения с мёртвыми кнопками. Возвращает id нового сообщения.
func (b *Bot) deleteAndSend(chatID int64, oldMessageID int, text string, kb tgbotapi.InlineKeyboardMarkup) int {
	b.deleteMessage(chatID, oldMessageID)
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = kb
	sent := b.send(m)
	return sent.MessageID
}

// surfaceError показывает оператору ошибку WB, не меняя состояние диалога.
func (b *Bot) surfaceError(chatID int64, cb *tgbotapi.CallbackQuery, err error) {
	var apiErr *wb.APIError
	if errors.As(err, &apiErr) {
		text := "Ошибка WB: " + apiErr.Message
		if cb != nil {
			_ = b.answerCallback(cb, text, true)
		} else {
			b.sendText(chatID, text)
		}
		return
	}
	b.log.Error("remote call failed", "chat", chatID, "err", err)
	if cb != nil {
		_ = b.answerCallback(cb, "Что-то пошло не так, попробуйте ещё раз", true)
	}
}

// articleCounts — сводка заказов поставки: «артикул - N шт.», артикулы по алфавиту.
func articleCounts(orders []wb.Order) string {
	counts := map[string]int{}
	for _, o := range orders {
		counts[o.Article]++
	}
	articles := make([]string, 0, len(counts))
	for a := range counts {
		articles = append(articles, a)
	}
	sort.Strings(articles)

	var sb strings.Builder
	for i, a := range articles {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s - %dшт.", a, counts[a])
	}
	return sb.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// pageItem — кнопка для пагинатора с уже собранным callback-токеном.
type pageItem struct {
	text string
	data string
}

func (i pageItem) ButtonText() string   { return i.text }
func (i pageItem) CallbackData() string { return i.data }
