package wb

import (
	"fmt"
	"time"
)

// UnassignedSupply — значение supplyId у заказа, который ещё не закреплён за поставкой.
const UnassignedSupply = "Не закреплён за поставкой"

type Supply struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt"`
	Done      bool       `json:"done"`
}

func (s Supply) StatusLabel() string {
	if s.Done {
		return "Закрыта"
	}
	return "Открыта"
}

// ButtonText — подпись кнопки в списке поставок: «Название | ID | Статус».
func (s Supply) ButtonText() string {
	return fmt.Sprintf("%s | %s | %s", s.Name, s.ID, s.StatusLabel())
}

type Order struct {
	ID             int64     `json:"id"`
	SupplyID       string    `json:"supplyId"`
	Article        string    `json:"article"`
	ConvertedPrice int64     `json:"convertedPrice"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (o Order) SupplyLabel() string {
	if o.SupplyID == "" {
		return UnassignedSupply
	}
	return o.SupplyID
}

// CreatedAgo — сколько прошло с момента заказа, формат «ЧЧч. ММм.».
func (o Order) CreatedAgo(now time.Time) string {
	ago := now.Sub(o.CreatedAt)
	if ago < 0 {
		ago = 0
	}
	hours := int(ago / time.Hour)
	minutes := int(ago/time.Minute) % 60
	return fmt.Sprintf("%02dч. %02dм.", hours, minutes)
}

// PriceRub — цена в рублях (convertedPrice приходит в копейках).
func (o Order) PriceRub() string {
	return fmt.Sprintf("%d.%02d ₽", o.ConvertedPrice/100, o.ConvertedPrice%100)
}

func (o Order) ButtonText(now time.Time) string {
	return fmt.Sprintf("%s | %s", o.Article, o.CreatedAgo(now))
}

// OrderQRCode — стикер заказа; File содержит PNG в base64.
type OrderQRCode struct {
	OrderID int64  `json:"orderId"`
	File    string `json:"file"`
	PartA   string `json:"partA"`
	PartB   string `json:"partB"`
}

// SupplyQRCode — штрихкод поставки; File содержит PNG в base64.
type SupplyQRCode struct {
	Barcode string `json:"barcode"`
	File    string `json:"file"`
}

// ProductCard — сырая карточка товара из content-API. Разбираем только
// нужные поля, характеристики приходят списком «имя: значение» с
// произвольными типами значений.
type ProductCard struct {
	VendorCode      string           `json:"vendorCode"`
	Brand           string           `json:"brand"`
	MediaFiles      []string         `json:"mediaFiles"`
	Characteristics []map[string]any `json:"characteristics"`
	Sizes           []struct {
		Skus []string `json:"skus"`
	} `json:"sizes"`
}

type Product struct {
	Article   string
	Name      string
	Barcode   string
	Brand     string
	Countries []string
	Colors    []string
	Media     []string
}

const defaultProductName = "Наименование продукции"

// ProductFromCard собирает Product из карточки: наименование, страна и цвет
// лежат в характеристиках, штрихкод — в первом SKU первого размера.
func ProductFromCard(card ProductCard) Product {
	p := Product{
		Article: card.VendorCode,
		Name:    defaultProductName,
		Brand:   card.Brand,
		Media:   card.MediaFiles,
	}
	if p.Article == "" {
		p.Article = "0000000000"
	}
	for _, ch := range card.Characteristics {
		if v, ok := ch["Наименование"]; ok {
			if s := characteristicStrings(v); len(s) > 0 {
				p.Name = s[0]
			}
		}
		if v, ok := ch["Страна производства"]; ok {
			p.Countries = append(p.Countries, characteristicStrings(v)...)
		}
		if v, ok := ch["Цвет"]; ok {
			p.Colors = append(p.Colors, characteristicStrings(v)...)
		}
	}
	if len(card.Sizes) > 0 && len(card.Sizes[0].Skus) > 0 {
		p.Barcode = card.Sizes[0].Skus[0]
	}
	return p
}

// characteristicStrings нормализует значение характеристики:
// встречаются и строки, и списки строк.
func characteristicStrings(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
