package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/wb"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Показать поставки", "menu:supplies"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Новые заказы", "menu:orders"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Каталог в Excel", "menu:catalog"),
		),
	)
}

func mainMenuRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Основное меню", "menu:main"),
	)
}

func supplyDetailKeyboard(s wb.Supply, hasOrders bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if hasOrders {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Создать стикеры", "sd:stickers:"+s.ID),
		))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬇️ Выгрузить в Excel", "sd:export:"+s.ID),
		))
		if !s.Done {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Редактировать заказы", "sd:edit:"+s.ID),
			))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Отправить в доставку", "sd:close:"+s.ID),
			))
		}
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Удалить поставку", "sd:delete:"+s.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("К списку поставок", "menu:supplies"),
	))
	rows = append(rows, mainMenuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmCloseKeyboard(supplyID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, отправить", "cls:yes:"+supplyID),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Нет", "cls:no"),
		),
	)
}

func orderDetailKeyboard(order wb.Order, fromSupplyID string) tgbotapi.InlineKeyboardMarkup {
	var moveData, backText, backData string
	if fromSupplyID != "" {
		moveData = fmt.Sprintf("od:move:s:%s:%d", fromSupplyID, order.ID)
		backText = "К заказам поставки"
		backData = "sd:edit:" + fromSupplyID
	} else {
		moveData = fmt.Sprintf("od:move:n:%d", order.ID)
		backText = "Вернуться к списку заказов"
		backData = "menu:orders"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Перенести в поставку", moveData),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(backText, backData),
		),
		mainMenuRow(),
	)
}

func supplyNamePromptKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Назад к списку поставок", "nam:cancel"),
		),
		mainMenuRow(),
	)
}
