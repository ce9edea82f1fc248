// Package paginator режет упорядоченный список кнопок на страницы
// фиксированного размера и строит ряд навигации «назад/вперёд».
// Пагинатор не хранит состояния и не изменяет исходный список:
// одинаковый вход всегда даёт одинаковую клавиатуру.
package paginator

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Item — элемент списка: подпись кнопки и её callback-токен.
type Item interface {
	ButtonText() string
	CallbackData() string
}

type Paginator struct {
	items    []Item
	pageSize int
}

func New(items []Item, pageSize int) *Paginator {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Paginator{items: items, pageSize: pageSize}
}

func (p *Paginator) TotalItems() int { return len(p.items) }

func (p *Paginator) TotalPages() int {
	return (len(p.items) + p.pageSize - 1) / p.pageSize
}

// IsPaginated — нужна ли навигация вообще.
func (p *Paginator) IsPaginated() bool { return p.TotalPages() > 1 }

// clamp приводит номер страницы в допустимый диапазон вместо ошибки.
func (p *Paginator) clamp(page int) int {
	maxPage := p.TotalPages() - 1
	if maxPage < 0 {
		maxPage = 0
	}
	if page < 0 {
		return 0
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

// Page возвращает элементы запрошенной страницы.
func (p *Paginator) Page(page int) []Item {
	if len(p.items) == 0 {
		return nil
	}
	page = p.clamp(page)
	start := page * p.pageSize
	end := min(start+p.pageSize, len(p.items))
	return p.items[start:end]
}

// Keyboard строит ряды кнопок страницы и ряд навигации. Кнопка «назад»
// есть только не на первой странице, «вперёд» — только не на последней;
// обе несут токен вида «<pagePrefix>page:<N>».
func (p *Paginator) Keyboard(page int, pagePrefix string) [][]tgbotapi.InlineKeyboardButton {
	page = p.clamp(page)
	total := p.TotalPages()

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, p.pageSize+1)
	for _, item := range p.Page(page) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(item.ButtonText(), item.CallbackData()),
		))
	}

	nav := []tgbotapi.InlineKeyboardButton{}
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("< %d/%d", page, total),
			fmt.Sprintf("%spage:%d", pagePrefix, page-1),
		))
	}
	if page < total-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d >", page+2, total),
			fmt.Sprintf("%spage:%d", pagePrefix, page+1),
		))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return rows
}
