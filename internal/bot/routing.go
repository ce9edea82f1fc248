package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/session"
)

// saveState записывает следующее состояние. Пустой next означает
// «обработчик ничего не менял» — тогда перезаписывается текущее.
func (b *Bot) saveState(ctx context.Context, chatID int64, st *session.Item, next session.State, payload session.Payload) {
	if next == "" {
		next, payload = st.State, st.Payload
	}
	if payload == nil {
		payload = session.Payload{}
	}
	if err := b.sessions.Set(ctx, chatID, next, payload); err != nil {
		b.log.Error("session write failed", "chat", chatID, "state", next, "err", err)
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	// Команда сброса работает из любого состояния.
	if msg.Command() == "start" || msg.Text == "start" {
		st, err := b.sessions.Get(ctx, chatID)
		if err != nil {
			b.log.Error("session read failed", "chat", chatID, "err", err)
			return
		}
		b.deleteMessage(chatID, msg.MessageID)
		next, payload := b.renderMainMenu(chatID, 0)
		b.saveState(ctx, chatID, st, next, payload)
		return
	}
	if msg.Command() == "help" {
		b.sendText(chatID, "Команды:\n/start — основное меню\n/help — помощь")
		return
	}

	st, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.log.Error("session read failed", "chat", chatID, "err", err)
		return
	}

	switch st.State {
	case session.StateAwaitSupplyName:
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			// в этом состоянии принимаем только текст
			b.deleteMessage(chatID, msg.MessageID)
			return
		}
		next, payload := b.handleNewSupplyName(ctx, chatID, st, name)
		b.saveState(ctx, chatID, st, next, payload)

	case session.StateStart:
		b.deleteMessage(chatID, msg.MessageID)
		next, payload := b.renderMainMenu(chatID, 0)
		b.saveState(ctx, chatID, st, next, payload)

	default:
		// свободный текст вне состояний ввода — подчищаем и не реагируем
		b.deleteMessage(chatID, msg.MessageID)
	}
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	mid := cb.Message.MessageID
	data := cb.Data

	st, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.log.Error("session read failed", "chat", chatID, "err", err)
		return
	}

	var next session.State
	var payload session.Payload

	// Навигация в основные списки доступна из любого состояния.
	switch data {
	case "start", "menu:main":
		next, payload = b.renderMainMenu(chatID, mid)
	case "menu:supplies":
		next, payload = b.renderSupplies(ctx, chatID, mid, cb, 0, true)
	case "menu:orders":
		next, payload = b.renderNewOrders(ctx, chatID, mid, cb, 0)
	default:
		next, payload = b.dispatchCallback(ctx, chatID, mid, st, cb)
	}

	b.saveState(ctx, chatID, st, next, payload)
}

// dispatchCallback — сердце машины состояний: (состояние, токен) → обработчик.
// Неопознанный или протухший токен молча игнорируется, состояние не меняется.
func (b *Bot) dispatchCallback(ctx context.Context, chatID int64, mid int, st *session.Item, cb *tgbotapi.CallbackQuery) (session.State, session.Payload) {
	data := cb.Data

	switch st.State {
	case session.StateStart:
		return b.renderMainMenu(chatID, mid)

	case session.StateMainMenu:
		if data == "menu:catalog" {
			b.exportCatalog(ctx, chatID, cb)
			return "", nil
		}

	case session.StateSuppliesList:
		onlyActive := session.GetBool(st.Payload, session.KeyOnlyActive, true)
		switch {
		case strings.HasPrefix(data, "sup:open:"):
			return b.renderSupplyDetail(ctx, chatID, mid, cb, strings.TrimPrefix(data, "sup:open:"))
		case data == "sup:new":
			return b.promptSupplyName(chatID, mid, 0)
		case data == "sup:all":
			return b.renderSupplies(ctx, chatID, mid, cb, 0, false)
		case data == "sup:active":
			return b.renderSupplies(ctx, chatID, mid, cb, 0, true)
		case strings.HasPrefix(data, "sup:page:"):
			return b.renderSupplies(ctx, chatID, mid, cb, atoi(strings.TrimPrefix(data, "sup:page:")), onlyActive)
		}

	case session.StateSupplyDetail:
		switch {
		case strings.HasPrefix(data, "sd:stickers:"):
			b.sendStickers(ctx, chatID, cb, strings.TrimPrefix(data, "sd:stickers:"))
			return "", nil
		case strings.HasPrefix(data, "sd:export:"):
			b.exportSupply(ctx, chatID, cb, strings.TrimPrefix(data, "sd:export:"))
			return "", nil
		case strings.HasPrefix(data, "sd:edit:"):
			return b.renderEditSupply(ctx, chatID, mid, cb, strings.TrimPrefix(data, "sd:edit:"), 0)
		case strings.HasPrefix(data, "sd:close:"):
			return b.renderConfirmClose(chatID, mid, strings.TrimPrefix(data, "sd:close:"))
		case strings.HasPrefix(data, "sd:delete:"):
			return b.handleDeleteSupply(ctx, chatID, mid, cb, strings.TrimPrefix(data, "sd:delete:"))
		}

	case session.StateConfirmClose:
		switch {
		case strings.HasPrefix(data, "cls:yes:"):
			return b.handleCloseSupply(ctx, chatID, mid, cb, strings.TrimPrefix(data, "cls:yes:"))
		case data == "cls:no":
			return b.renderSupplies(ctx, chatID, mid, cb, 0, true)
		}

	case session.StateNewOrdersList:
		switch {
		case strings.HasPrefix(data, "ord:n:"):
			return b.renderOrderDetail(ctx, chatID, mid, cb, "", atoi64(strings.TrimPrefix(data, "ord:n:")))
		case strings.HasPrefix(data, "no:page:"):
			return b.renderNewOrders(ctx, chatID, mid, cb, atoi(strings.TrimPrefix(data, "no:page:")))
		}

	case session.StateEditSupply:
		switch {
		case strings.HasPrefix(data, "ord:s:"):
			parts := strings.Split(data, ":")
			if len(parts) == 4 {
				return b.renderOrderDetail(ctx, chatID, mid, cb, parts[2], atoi64(parts[3]))
			}
		case strings.HasPrefix(data, "es:page:"):
			supplyID, _ := session.GetString(st.Payload, session.KeySupplyID)
			return b.renderEditSupply(ctx, chatID, mid, cb, supplyID, atoi(strings.TrimPrefix(data, "es:page:")))
		case strings.HasPrefix(data, "sup:open:"):
			return b.renderSupplyDetail(ctx, chatID, mid, cb, strings.TrimPrefix(data, "sup:open:"))
		}

	case session.StateOrderDetail:
		switch {
		case strings.HasPrefix(data, "od:move:n:"):
			return b.renderSupplyChoice(ctx, chatID, mid, cb, atoi64(strings.TrimPrefix(data, "od:move:n:")))
		case strings.HasPrefix(data, "od:move:s:"):
			parts := strings.Split(data, ":")
			if len(parts) == 5 {
				return b.renderSupplyChoice(ctx, chatID, mid, cb, atoi64(parts[4]))
			}
		case strings.HasPrefix(data, "sd:edit:"):
			return b.renderEditSupply(ctx, chatID, mid, cb, strings.TrimPrefix(data, "sd:edit:"), 0)
		}

	case session.StateSupplyChoice:
		switch {
		case strings.HasPrefix(data, "ch:pick:"):
			parts := strings.Split(data, ":")
			if len(parts) == 4 {
				return b.handleAttachOrder(ctx, chatID, mid, cb, parts[2], atoi64(parts[3]))
			}
		case data == "ch:new":
			pending, _ := session.GetInt64(st.Payload, session.KeyPendingOrder)
			return b.promptSupplyName(chatID, mid, pending)
		}

	case session.StateAwaitSupplyName:
		if data == "nam:cancel" {
			return b.renderSupplies(ctx, chatID, mid, cb, 0, true)
		}
	}

	// Протухший или чужой токен: ничего не перерисовываем, состояние на месте.
	_ = b.answerCallback(cb, "Кнопка устарела", false)
	return "", nil
}
