package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"github.com/nstonic/WBSallerBot/internal/wb"
)

// exportSupply выгружает заказы поставки в .xlsx и шлёт файл в чат.
// Строки обогащаются данными карточек (наименование, штрихкод, бренд).
func (b *Bot) exportSupply(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, supplyID string) {
	orders, err := b.wb.SupplyOrders(ctx, supplyID)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return
	}
	if len(orders) == 0 {
		_ = b.answerCallback(cb, "В поставке нет заказов", true)
		return
	}

	seen := map[string]bool{}
	articles := make([]string, 0, len(orders))
	for _, o := range orders {
		if !seen[o.Article] {
			seen[o.Article] = true
			articles = append(articles, o.Article)
		}
	}
	products, err := b.wb.ProductsByArticles(ctx, articles)
	if err != nil {
		b.surfaceError(chatID, cb, err)
		return
	}
	byArticle := make(map[string]wb.Product, len(products))
	for _, p := range products {
		byArticle[p.Article] = p
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	headers := []string{"order_id", "article", "name", "barcode", "brand", "price_rub", "created_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, o := range orders {
		p := byArticle[o.Article]
		row := i + 2
		values := []any{o.ID, o.Article, p.Name, p.Barcode, p.Brand, o.PriceRub(), o.CreatedAt.Format("2006-01-02 15:04:05")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.log.Error("supply export build failed", "supply", supplyID, "err", err)
		_ = b.answerCallback(cb, "Не удалось собрать файл", true)
		return
	}
	_ = b.answerCallback(cb, "Файл готов", false)
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("supply_%s.xlsx", supplyID),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Заказы поставки %s", supplyID)
	b.send(doc)
}

// exportCatalog выгружает весь каталог в .xlsx. Карточки читаются лениво,
// страница за страницей, и сразу пишутся через StreamWriter — в памяти
// держится одна страница каталога, а не весь список.
func (b *Bot) exportCatalog(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	_ = b.answerCallback(cb, "Готовлю выгрузку каталога…", false)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		b.log.Error("catalog export init failed", "err", err)
		return
	}
	_ = sw.SetRow("A1", []any{"article", "name", "barcode", "brand", "countries", "colors"})

	row := 2
	for card, err := range b.wb.ProductCards(ctx) {
		if err != nil {
			b.surfaceError(chatID, cb, err)
			return
		}
		p := wb.ProductFromCard(card)
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = sw.SetRow(cell, []any{
			p.Article, p.Name, p.Barcode, p.Brand,
			strings.Join(p.Countries, ", "), strings.Join(p.Colors, ", "),
		})
		row++
	}
	if err := sw.Flush(); err != nil {
		b.log.Error("catalog export flush failed", "err", err)
		return
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.log.Error("catalog export build failed", "err", err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "catalog.xlsx",
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Каталог: %d карточек", row-2)
	b.send(doc)
}
