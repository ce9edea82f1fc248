package session

// State — токен состояния диалога. Токены стабильные строки: новые
// добавляются, старые никогда не переименовываются и не переиспользуются,
// чтобы записи в базе переживали обновления бота. Неизвестный токен
// трактуется как StateStart.
type State string

const (
	StateStart           State = "start"
	StateMainMenu        State = "main_menu"
	StateSuppliesList    State = "supplies_list"
	StateNewOrdersList   State = "new_orders_list"
	StateSupplyDetail    State = "supply_detail"
	StateOrderDetail     State = "order_detail"
	StateSupplyChoice    State = "supply_choice"
	StateAwaitSupplyName State = "await_supply_name"
	StateEditSupply      State = "edit_supply"
	StateConfirmClose    State = "confirm_close"
)

var knownStates = map[State]struct{}{
	StateStart:           {},
	StateMainMenu:        {},
	StateSuppliesList:    {},
	StateNewOrdersList:   {},
	StateSupplyDetail:    {},
	StateOrderDetail:     {},
	StateSupplyChoice:    {},
	StateAwaitSupplyName: {},
	StateEditSupply:      {},
	StateConfirmClose:    {},
}

func Known(s State) bool {
	_, ok := knownStates[s]
	return ok
}

// Payload — служебные данные состояния: id сообщения-приглашения,
// отложенный заказ, фильтр списка и т.п. Номер страницы сюда не пишется:
// он живёт только в callback-токенах навигации.
type Payload map[string]any

// Ключи payload, используемые ботом.
const (
	KeyPromptMID    = "prompt_mid"    // сообщение «введите название», удаляется после ответа
	KeyPendingOrder = "pending_order" // заказ, ждущий переноса в новую поставку
	KeySupplyID     = "supply_id"     // поставка текущего экрана
	KeyOnlyActive   = "only_active"   // фильтр списка поставок
)

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// GetString — безопасное чтение строки из payload.
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt64 — числа после JSON-раундтрипа приходят как float64.
func GetInt64(p Payload, key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// GetBool возвращает значение ключа, либо def при его отсутствии.
func GetBool(p Payload, key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}
