package bot

import (
	"context"
	"encoding/base64"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/wb"
)

// sendStickers шлёт в чат QR-стикеры всех заказов поставки. Стикеры
// запрашиваются на лету и нигде не сохраняются.
func (b *Bot) sendStickers(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, supplyID string) {
	orders, err := b.wb.SupplyOrders(ctx, supplyID)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return
	}
	if len(orders) == 0 {
		_ = b.answerCallback(cb, "В поставке нет заказов", true)
		return
	}

	articleByOrder := make(map[int64]string, len(orders))
	orderIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		articleByOrder[o.ID] = o.Article
	}

	stickers, err := b.wb.OrderStickers(ctx, orderIDs)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return
	}
	_ = b.answerCallback(cb, fmt.Sprintf("Стикеров: %d", len(stickers)), false)

	for _, st := range stickers {
		img, err := base64.StdEncoding.DecodeString(st.File)
		if err != nil {
			b.log.Error("sticker decode failed", "order", st.OrderID, "err", err)
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("sticker_%d.png", st.OrderID),
			Bytes: img,
		})
		photo.Caption = fmt.Sprintf("%s | заказ %d | %s %s",
			articleByOrder[st.OrderID], st.OrderID, st.PartA, st.PartB)
		b.send(photo)
	}
}

// sendSupplyBarcode отправляет штрихкод закрытой поставки. Сбой здесь не
// критичен: поставка уже в доставке, поэтому только логируем.
func (b *Bot) sendSupplyBarcode(ctx context.Context, chatID int64, supplyID string) {
	qr, err := b.wb.SupplyBarcode(ctx, supplyID)
	if err != nil {
		b.log.Error("supply barcode fetch failed", "supply", supplyID, "err", err)
		return
	}
	b.sendSupplyBarcodePhoto(chatID, supplyID, qr)
}

func (b *Bot) sendSupplyBarcodePhoto(chatID int64, supplyID string, qr wb.SupplyQRCode) {
	img, err := base64.StdEncoding.DecodeString(qr.File)
	if err != nil {
		b.log.Error("supply barcode decode failed", "supply", supplyID, "err", err)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("supply_%s.png", supplyID),
		Bytes: img,
	})
	photo.Caption = fmt.Sprintf("Поставка %s | %s", supplyID, qr.Barcode)
	b.send(photo)
}
