package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/paginator"
	"github.com/nstonic/WBSallerBot/internal/session"
	"github.com/nstonic/WBSallerBot/internal/wb"
)

func (b *Bot) renderNewOrders(ctx context.Context, chatID int64, deleteMID int, cb *tgbotapi.CallbackQuery, page int) (session.State, session.Payload) {
	orders, err := b.wb.NewOrders(ctx)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}

	now := b.now()
	items := make([]paginator.Item, 0, len(orders))
	for _, o := range orders {
		items = append(items, pageItem{
			text: o.ButtonText(now),
			data: fmt.Sprintf("ord:n:%d", o.ID),
		})
	}
	pg := paginator.New(items, b.pageSize)
	rows := pg.Keyboard(page, "no:")
	rows = append(rows, mainMenuRow())

	text := "Новые заказы:\n(Артикул | Время с момента заказа)"
	if len(orders) == 0 {
		text = "Новых заказов нет"
	}
	b.deleteAndSend(chatID, deleteMID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
	return session.StateNewOrdersList, session.Payload{}
}

// renderOrderDetail — карточка заказа. fromSupplyID пустой, когда заказ
// открыт из списка новых; контекст возврата зашит в кнопки, а не в сессию.
func (b *Bot) renderOrderDetail(ctx context.Context, chatID int64, deleteMID int, cb *tgbotapi.CallbackQuery, fromSupplyID string, orderID int64) (session.State, session.Payload) {
	var (
		orders []wb.Order
		err    error
	)
	if fromSupplyID != "" {
		orders, err = b.wb.SupplyOrders(ctx, fromSupplyID)
	} else {
		orders, err = b.wb.NewOrders(ctx)
	}
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}

	var order wb.Order
	found := false
	for _, o := range orders {
		if o.ID == orderID {
			order, found = o, true
			break
		}
	}
	if !found {
		// заказ уже уехал — кнопка протухла
		_ = b.answerCallback(cb, "Заказ не найден", true)
		return "", nil
	}

	_ = b.answerCallback(cb, fmt.Sprintf("Информация по заказу %d", order.ID), false)
	text := fmt.Sprintf(
		"Номер заказа: %d\nАртикул: %s\nПоставка: %s\nЦена: %s\nВремя с момента заказа: %s",
		order.ID, order.Article, order.SupplyLabel(), order.PriceRub(), order.CreatedAgo(b.now()),
	)
	b.deleteAndSend(chatID, deleteMID, text, orderDetailKeyboard(order, fromSupplyID))

	payload := session.Payload{}
	if fromSupplyID != "" {
		payload[session.KeySupplyID] = fromSupplyID
	}
	return session.StateOrderDetail, payload
}

// renderSupplyChoice — выбор поставки, в которую перенести заказ.
func (b *Bot) renderSupplyChoice(ctx context.Context, chatID int64, deleteMID int, cb *tgbotapi.CallbackQuery, orderID int64) (session.State, session.Payload) {
	supplies, err := b.wb.Supplies(ctx, true, b.suppliesLimit)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(supplies)+3)
	for _, s := range supplies {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s | %s", s.Name, s.ID),
				fmt.Sprintf("ch:pick:%s:%d", s.ID, orderID),
			),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Создать новую поставку", "ch:new"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Назад к списку заказов", "menu:orders"),
		),
		mainMenuRow(),
	)

	b.deleteAndSend(chatID, deleteMID, "Выберите поставку", tgbotapi.NewInlineKeyboardMarkup(rows...))
	return session.StateSupplyChoice, session.Payload{session.KeyPendingOrder: orderID}
}

// handleAttachOrder закрепляет заказ за поставкой и показывает её карточку.
func (b *Bot) handleAttachOrder(ctx context.Context, chatID int64, mid int, cb *tgbotapi.CallbackQuery, supplyID string, orderID int64) (session.State, session.Payload) {
	if err := b.wb.AddOrderToSupply(ctx, supplyID, orderID); err != nil {
		b.surfaceError(chatID, cb, err)
		return "", nil
	}
	_ = b.answerCallback(cb, "Заказ перенесён", false)
	return b.renderSupplyDetail(ctx, chatID, mid, cb, supplyID)
}
