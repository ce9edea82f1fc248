package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/paginator"
	"github.com/nstonic/WBSallerBot/internal/session"
)

func (b *Bot) renderMainMenu(chatID int64, deleteMID int) (session.State, session.Payload) {
	b.deleteAndSend(chatID, deleteMID, "Основное меню", mainMenuKeyboard())
	return session.StateMainMenu, session.Payload{}
}

// renderSupplies показывает список поставок, свежие первыми. Список всегда
// перечитывается из WB — кэша нет, свежесть важнее задержки.
func (b *Bot) renderSupplies(ctx context.Context, chatID int64, deleteMID int, cb *tgbotapi.CallbackQuery, page int, onlyActive bool) (session.State, session.Payload) {
	supplies, err := b.wb.Supplies(ctx, onlyActive, b.suppliesLimit)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}

	items := make([]paginator.Item, 0, len(supplies))
	for _, s := range supplies {
		items = append(items, pageItem{text: s.ButtonText(), data: "sup:open:" + s.ID})
	}
	pg := paginator.New(items, b.pageSize)
	rows := pg.Keyboard(page, "sup:")

	text := "Текущие незакрытые поставки"
	toggle := tgbotapi.NewInlineKeyboardButtonData("Показать закрытые", "sup:all")
	if !onlyActive {
		text = "Все поставки"
		toggle = tgbotapi.NewInlineKeyboardButtonData("Только открытые", "sup:active")
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Создать новую поставку", "sup:new"),
		),
		tgbotapi.NewInlineKeyboardRow(toggle),
		mainMenuRow(),
	)

	b.deleteAndSend(chatID, deleteMID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
	return session.StateSuppliesList, session.Payload{session.KeyOnlyActive: onlyActive}
}

func (b *Bot) renderSupplyDetail(ctx context.Context, chatID int64, deleteMID int, cb *tgbotapi.CallbackQuery, supplyID string) (session.State, session.Payload) {
	supply, err := b.wb.Supply(ctx, supplyID)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}
	orders, err := b.wb.SupplyOrders(ctx, supplyID)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}

	var text string
	if len(orders) > 0 {
		text = fmt.Sprintf("Заказы по поставке %s (%s):\n\n%s",
			supplyID, supply.StatusLabel(), articleCounts(orders))
	} else {
		text = fmt.Sprintf("В поставке %s нет заказов", supplyID)
	}

	b.deleteAndSend(chatID, deleteMID, text, supplyDetailKeyboard(supply, len(orders) > 0))
	return session.StateSupplyDetail, session.Payload{session.KeySupplyID: supplyID}
}

// renderEditSupply — постраничный список заказов одной поставки.
func (b *Bot) renderEditSupply(ctx context.Context, chatID int64, deleteMID int, cb *tgbotapi.CallbackQuery, supplyID string, page int) (session.State, session.Payload) {
	if supplyID == "" {
		_ = b.answerCallback(cb, "Кнопка устарела", false)
		return "", nil
	}
	orders, err := b.wb.SupplyOrders(ctx, supplyID)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}

	now := b.now()
	items := make([]paginator.Item, 0, len(orders))
	for _, o := range orders {
		items = append(items, pageItem{
			text: o.ButtonText(now),
			data: fmt.Sprintf("ord:s:%s:%d", supplyID, o.ID),
		})
	}
	pg := paginator.New(items, b.pageSize)
	rows := pg.Keyboard(page, "es:")
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("К поставке", "sup:open:"+supplyID),
		),
		mainMenuRow(),
	)

	text := fmt.Sprintf("Заказы поставки %s — выберите заказ:\n(Артикул | Время с момента заказа)", supplyID)
	b.deleteAndSend(chatID, deleteMID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
	return session.StateEditSupply, session.Payload{session.KeySupplyID: supplyID}
}

func (b *Bot) renderConfirmClose(chatID int64, deleteMID int, supplyID string) (session.State, session.Payload) {
	text := fmt.Sprintf("Отправить поставку %s в доставку?\nДействие необратимо.", supplyID)
	b.deleteAndSend(chatID, deleteMID, text, confirmCloseKeyboard(supplyID))
	return session.StateConfirmClose, session.Payload{session.KeySupplyID: supplyID}
}

// handleCloseSupply выполняет необратимое закрытие. При ошибке WB экран
// подтверждения остаётся на месте.
func (b *Bot) handleCloseSupply(ctx context.Context, chatID int64, mid int, cb *tgbotapi.CallbackQuery, supplyID string) (session.State, session.Payload) {
	if err := b.wb.CloseSupply(ctx, supplyID); err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}
	_ = b.answerCallback(cb, "Отправлено в доставку", false)
	b.sendSupplyBarcode(ctx, chatID, supplyID)
	return b.renderSupplies(ctx, chatID, mid, cb, 0, true)
}

func (b *Bot) handleDeleteSupply(ctx context.Context, chatID int64, mid int, cb *tgbotapi.CallbackQuery, supplyID string) (session.State, session.Payload) {
	if err := b.wb.DeleteSupply(ctx, supplyID); err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}
	_ = b.answerCallback(cb, "Поставка удалена", false)
	return b.renderSupplies(ctx, chatID, mid, cb, 0, true)
}

// promptSupplyName переводит диалог в режим ввода названия. Id сообщения
// с приглашением сохраняется, чтобы удалить его после ответа; pendingOrder,
// если есть, переживает ввод и возвращает оператора к выбору поставки.
func (b *Bot) promptSupplyName(chatID int64, deleteMID int, pendingOrder int64) (session.State, session.Payload) {
	mid := b.deleteAndSend(chatID, deleteMID, "Напишите название для новой поставки", supplyNamePromptKeyboard())
	payload := session.Payload{session.KeyPromptMID: mid}
	if pendingOrder != 0 {
		payload[session.KeyPendingOrder] = pendingOrder
	}
	return session.StateAwaitSupplyName, payload
}

func (b *Bot) handleNewSupplyName(ctx context.Context, chatID int64, st *session.Item, name string) (session.State, session.Payload) {
	supplyID, err := b.wb.CreateSupply(ctx, name)
	if err != nil {
		b.surfaceError(chatID, nil, err)
		return "", nil
	}
	b.log.Info("supply created", "id", supplyID, "name", name)

	if promptMID, ok := session.GetInt64(st.Payload, session.KeyPromptMID); ok {
		b.deleteMessage(chatID, int(promptMID))
	}

	// Если поставку создавали ради переноса заказа — возвращаемся к выбору,
	// свежая поставка уже будет в списке.
	if pending, ok := session.GetInt64(st.Payload, session.KeyPendingOrder); ok && pending != 0 {
		return b.renderSupplyChoice(ctx, chatID, 0, nil, pending)
	}
	return b.renderSupplies(ctx, chatID, 0, nil, 0, true)
}
