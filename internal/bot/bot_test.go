package bot

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstonic/WBSallerBot/internal/session"
	"github.com/nstonic/WBSallerBot/internal/wb"
)

const operatorChat int64 = 1001

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

/*** FAKES ***/

type fakeTelegram struct {
	mu      sync.Mutex
	nextMID int
	sent    []tgbotapi.Chattable
	answers []tgbotapi.CallbackConfig
	deleted []tgbotapi.DeleteMessageConfig
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextMID++
	return tgbotapi.Message{MessageID: f.nextMID}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.CallbackConfig:
		f.answers = append(f.answers, v)
	case tgbotapi.DeleteMessageConfig:
		f.deleted = append(f.deleted, v)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastMessage — последний отправленный текстовый экран (фото пропускаются).
func (f *fakeTelegram) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return m
		}
	}
	t.Fatal("ни одного сообщения не отправлено")
	return tgbotapi.MessageConfig{}
}

func (f *fakeTelegram) lastAnswer(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.answers, "ответа на callback не было")
	return f.answers[len(f.answers)-1]
}

func (f *fakeTelegram) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeTelegram) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// messageTexts — тексты всех отправленных экранов в порядке отправки.
func (f *fakeTelegram) messageTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeClient struct {
	mu sync.Mutex

	supplies       []wb.Supply
	ordersBySupply map[string][]wb.Order
	newOrders      []wb.Order
	stickers       []wb.OrderQRCode
	barcode        wb.SupplyQRCode
	products       []wb.Product
	cards          []wb.ProductCard
	createID       string

	deleteErr error
	closeErr  error
	attachErr error

	calls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		ordersBySupply: map[string][]wb.Order{},
		barcode:        wb.SupplyQRCode{Barcode: "WB0001", File: "cGluZw=="},
		createID:       "WB-GI-NEW",
		calls:          map[string]int{},
	}
}

func (f *fakeClient) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeClient) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient) Supplies(_ context.Context, onlyActive bool, _ int) ([]wb.Supply, error) {
	f.count("supplies")
	out := make([]wb.Supply, 0, len(f.supplies))
	for _, s := range f.supplies {
		if onlyActive && s.Done {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeClient) Supply(_ context.Context, supplyID string) (wb.Supply, error) {
	f.count("supply")
	for _, s := range f.supplies {
		if s.ID == supplyID {
			return s, nil
		}
	}
	return wb.Supply{ID: supplyID}, nil
}

func (f *fakeClient) SupplyOrders(_ context.Context, supplyID string) ([]wb.Order, error) {
	f.count("supply_orders")
	return f.ordersBySupply[supplyID], nil
}

func (f *fakeClient) NewOrders(context.Context) ([]wb.Order, error) {
	f.count("new_orders")
	return f.newOrders, nil
}

func (f *fakeClient) CreateSupply(_ context.Context, name string) (string, error) {
	f.count("create_supply")
	f.mu.Lock()
	f.supplies = append(f.supplies, wb.Supply{ID: f.createID, Name: name, CreatedAt: testNow})
	f.mu.Unlock()
	return f.createID, nil
}

func (f *fakeClient) DeleteSupply(_ context.Context, _ string) error {
	f.count("delete_supply")
	return f.deleteErr
}

func (f *fakeClient) CloseSupply(_ context.Context, _ string) error {
	f.count("close_supply")
	return f.closeErr
}

func (f *fakeClient) AddOrderToSupply(_ context.Context, supplyID string, orderID int64) error {
	f.count("add_order")
	if f.attachErr != nil {
		return f.attachErr
	}
	f.mu.Lock()
	f.ordersBySupply[supplyID] = append(f.ordersBySupply[supplyID],
		wb.Order{ID: orderID, SupplyID: supplyID, Article: "ART-MOVED", CreatedAt: testNow.Add(-time.Hour)})
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) OrderStickers(_ context.Context, _ []int64) ([]wb.OrderQRCode, error) {
	f.count("order_stickers")
	return f.stickers, nil
}

func (f *fakeClient) SupplyBarcode(_ context.Context, _ string) (wb.SupplyQRCode, error) {
	f.count("supply_barcode")
	return f.barcode, nil
}

func (f *fakeClient) ProductsByArticles(_ context.Context, _ []string) ([]wb.Product, error) {
	f.count("products")
	return f.products, nil
}

func (f *fakeClient) ProductCards(context.Context) iter.Seq2[wb.ProductCard, error] {
	f.count("product_cards")
	return func(yield func(wb.ProductCard, error) bool) {
		for _, c := range f.cards {
			if !yield(c, nil) {
				return
			}
		}
	}
}

type memSessions struct {
	mu    sync.Mutex
	items map[int64]session.Item
}

func newMemSessions() *memSessions {
	return &memSessions{items: map[int64]session.Item{}}
}

func (m *memSessions) Get(_ context.Context, chatID int64) (*session.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[chatID]; ok {
		return &session.Item{ChatID: it.ChatID, State: it.State, Payload: it.Payload}, nil
	}
	return &session.Item{ChatID: chatID, State: session.StateStart, Payload: session.Payload{}}, nil
}

func (m *memSessions) Set(_ context.Context, chatID int64, state session.State, payload session.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[chatID] = session.Item{ChatID: chatID, State: state, Payload: payload}
	return nil
}

func (m *memSessions) state(t *testing.T, chatID int64) session.Item {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[chatID]
	require.True(t, ok, "сессия чата %d не записана", chatID)
	return it
}

func (m *memSessions) seed(chatID int64, state session.State, payload session.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payload == nil {
		payload = session.Payload{}
	}
	m.items[chatID] = session.Item{ChatID: chatID, State: state, Payload: payload}
}

/*** SETUP ***/

func newTestBot() (*Bot, *fakeTelegram, *fakeClient, *memSessions) {
	tg := &fakeTelegram{}
	client := newFakeClient()
	store := newMemSessions()
	b := New(tg, slog.New(slog.DiscardHandler), client, store, []int64{operatorChat}, 50, 10)
	b.now = func() time.Time { return testNow }
	return b, tg, client, store
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 500,
			Chat:      &tgbotapi.Chat{ID: operatorChat},
		},
	}}
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 600,
		Chat:      &tgbotapi.Chat{ID: operatorChat},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func keyboard(t *testing.T, m tgbotapi.MessageConfig) tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "у сообщения нет inline-клавиатуры")
	return kb
}

func buttonTokens(kb tgbotapi.InlineKeyboardMarkup) []string {
	var tokens []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				tokens = append(tokens, *btn.CallbackData)
			}
		}
	}
	return tokens
}

/*** SCENARIOS ***/

func TestStartToSuppliesList(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{
		{ID: "WB-GI-2", Name: "Сентябрь", CreatedAt: testNow},
		{ID: "WB-GI-1", Name: "Август", CreatedAt: testNow.Add(-24 * time.Hour)},
		{ID: "WB-GI-0", Name: "Июль", CreatedAt: testNow.Add(-48 * time.Hour), Done: true},
	}
	ctx := context.Background()

	b.handleUpdate(ctx, textUpdate("/start"))

	assert.Equal(t, session.StateMainMenu, store.state(t, operatorChat).State)
	assert.Equal(t, "Основное меню", tg.lastMessage(t).Text)

	b.handleUpdate(ctx, callbackUpdate("menu:supplies"))

	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateSuppliesList, st.State)
	assert.Equal(t, true, st.Payload[session.KeyOnlyActive])

	m := tg.lastMessage(t)
	assert.Equal(t, "Текущие незакрытые поставки", m.Text)
	tokens := buttonTokens(keyboard(t, m))
	assert.Contains(t, tokens, "sup:open:WB-GI-2")
	assert.Contains(t, tokens, "sup:open:WB-GI-1")
	assert.NotContains(t, tokens, "sup:open:WB-GI-0", "закрытая поставка скрыта фильтром")
	assert.Contains(t, tokens, "sup:new")
	assert.Contains(t, tokens, "sup:all")
}

func TestDeleteEmptySupply(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Пустая", CreatedAt: testNow}}
	store.seed(operatorChat, session.StateSupplyDetail, session.Payload{session.KeySupplyID: "WB-GI-1"})

	b.handleUpdate(context.Background(), callbackUpdate("sd:delete:WB-GI-1"))

	assert.Equal(t, 1, client.callCount("delete_supply"), "ровно один вызов удаления")
	assert.Equal(t, "Поставка удалена", tg.lastAnswer(t).Text)
	assert.Equal(t, session.StateSuppliesList, store.state(t, operatorChat).State)
}

func TestAttachOrderToSupply(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow}}
	store.seed(operatorChat, session.StateSupplyChoice, session.Payload{session.KeyPendingOrder: int64(42)})

	b.handleUpdate(context.Background(), callbackUpdate("ch:pick:WB-GI-1:42"))

	assert.Equal(t, 1, client.callCount("add_order"), "ровно один вызов переноса")
	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateSupplyDetail, st.State)
	assert.Equal(t, "WB-GI-1", st.Payload[session.KeySupplyID])

	// карточка поставки уже показывает перенесённый заказ
	m := tg.lastMessage(t)
	assert.Contains(t, m.Text, "Заказы по поставке WB-GI-1")
	assert.Contains(t, m.Text, "ART-MOVED - 1шт.")
}

func TestCancelCloseKeepsSupply(t *testing.T) {
	b, _, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow}}
	store.seed(operatorChat, session.StateConfirmClose, session.Payload{session.KeySupplyID: "WB-GI-1"})

	b.handleUpdate(context.Background(), callbackUpdate("cls:no"))

	assert.Zero(t, client.callCount("close_supply"), "отказ не трогает WB")
	assert.Zero(t, client.callCount("delete_supply"))
	assert.Equal(t, session.StateSuppliesList, store.state(t, operatorChat).State)
}

func TestCloseSupplySendsBarcode(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow}}
	store.seed(operatorChat, session.StateConfirmClose, session.Payload{session.KeySupplyID: "WB-GI-1"})

	b.handleUpdate(context.Background(), callbackUpdate("cls:yes:WB-GI-1"))

	assert.Equal(t, 1, client.callCount("close_supply"))
	assert.Equal(t, session.StateSuppliesList, store.state(t, operatorChat).State)

	photos := tg.photos()
	require.Len(t, photos, 1, "после закрытия приходит штрихкод")
	assert.Equal(t, "Поставка WB-GI-1 | WB0001", photos[0].Caption)
}

func TestStaleTokenKeepsState(t *testing.T) {
	b, tg, client, store := newTestBot()
	seeded := session.Payload{session.KeyOnlyActive: false}
	store.seed(operatorChat, session.StateSuppliesList, seeded)

	// токен из чужого состояния
	b.handleUpdate(context.Background(), callbackUpdate("od:move:n:5"))

	assert.Equal(t, "Кнопка устарела", tg.lastAnswer(t).Text)
	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateSuppliesList, st.State)
	assert.Equal(t, seeded, st.Payload, "payload переживает протухший токен")
	assert.Zero(t, client.callCount("supplies"), "экран не перерисовывается")
}

func TestDomainErrorKeepsState(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.deleteErr = &wb.APIError{Code: "SupplyHasOrders", Message: "в поставке есть заказы"}
	store.seed(operatorChat, session.StateSupplyDetail, session.Payload{session.KeySupplyID: "WB-GI-1"})

	b.handleUpdate(context.Background(), callbackUpdate("sd:delete:WB-GI-1"))

	answer := tg.lastAnswer(t)
	assert.Equal(t, "Ошибка WB: в поставке есть заказы", answer.Text)
	assert.True(t, answer.ShowAlert)
	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateSupplyDetail, st.State, "ошибка не роняет диалог")
	assert.Equal(t, "WB-GI-1", st.Payload[session.KeySupplyID])
}

func TestPageNavigationIdempotent(t *testing.T) {
	b, tg, client, store := newTestBot()
	for i := 0; i < 25; i++ {
		client.supplies = append(client.supplies, wb.Supply{
			ID:        fmt.Sprintf("WB-GI-%d", i),
			Name:      fmt.Sprintf("supply %d", i),
			CreatedAt: testNow,
		})
	}
	store.seed(operatorChat, session.StateSuppliesList,
		session.Payload{session.KeyOnlyActive: true})
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate("sup:page:1"))
	first := tg.lastMessage(t)
	firstState := store.state(t, operatorChat)

	b.handleUpdate(ctx, callbackUpdate("sup:page:1"))
	second := tg.lastMessage(t)

	assert.Equal(t, first.Text, second.Text, "повтор события даёт тот же экран")
	assert.Equal(t, keyboard(t, first), keyboard(t, second))
	assert.Equal(t, firstState, store.state(t, operatorChat))
}

func TestNewSupplyNameWithPendingOrder(t *testing.T) {
	b, tg, client, store := newTestBot()
	store.seed(operatorChat, session.StateAwaitSupplyName, session.Payload{
		session.KeyPromptMID:    77,
		session.KeyPendingOrder: int64(42),
	})

	b.handleUpdate(context.Background(), textUpdate("Сентябрь"))

	assert.Equal(t, 1, client.callCount("create_supply"))

	// приглашение «введите название» удалено
	var promptDeleted bool
	for _, d := range tg.deleted {
		if d.MessageID == 77 {
			promptDeleted = true
		}
	}
	assert.True(t, promptDeleted)

	// отложенный заказ возвращает оператора к выбору поставки
	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateSupplyChoice, st.State)
	assert.EqualValues(t, 42, st.Payload[session.KeyPendingOrder])

	// свежесозданная поставка уже в списке выбора
	tokens := buttonTokens(keyboard(t, tg.lastMessage(t)))
	assert.Contains(t, tokens, "ch:pick:WB-GI-NEW:42")
}

func TestNewSupplyNameWithoutPendingOrder(t *testing.T) {
	b, _, client, store := newTestBot()
	store.seed(operatorChat, session.StateAwaitSupplyName, session.Payload{session.KeyPromptMID: 77})

	b.handleUpdate(context.Background(), textUpdate("Октябрь"))

	assert.Equal(t, 1, client.callCount("create_supply"))
	assert.Equal(t, session.StateSuppliesList, store.state(t, operatorChat).State)
}

func TestSupplyNameCancel(t *testing.T) {
	b, _, _, store := newTestBot()
	store.seed(operatorChat, session.StateAwaitSupplyName, session.Payload{session.KeyPromptMID: 77})

	b.handleUpdate(context.Background(), callbackUpdate("nam:cancel"))

	assert.Equal(t, session.StateSuppliesList, store.state(t, operatorChat).State)
}

func TestOrderDetailFromNewOrders(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.newOrders = []wb.Order{
		{ID: 42, Article: "ART-1", ConvertedPrice: 150000, CreatedAt: testNow.Add(-90 * time.Minute)},
	}
	store.seed(operatorChat, session.StateNewOrdersList, nil)

	b.handleUpdate(context.Background(), callbackUpdate("ord:n:42"))

	assert.Equal(t, session.StateOrderDetail, store.state(t, operatorChat).State)
	m := tg.lastMessage(t)
	assert.Contains(t, m.Text, "Номер заказа: 42")
	assert.Contains(t, m.Text, "Артикул: ART-1")
	assert.Contains(t, m.Text, "Поставка: "+wb.UnassignedSupply)
	assert.Contains(t, m.Text, "Цена: 1500.00 ₽")
	assert.Contains(t, m.Text, "Время с момента заказа: 01ч. 30м.")

	// заказ не закреплён — перенос идёт через токен нового заказа
	tokens := buttonTokens(keyboard(t, m))
	assert.Contains(t, tokens, "od:move:n:42")
	assert.Contains(t, tokens, "menu:orders")
}

func TestOrderDetailMissingOrder(t *testing.T) {
	b, tg, _, store := newTestBot()
	store.seed(operatorChat, session.StateNewOrdersList, nil)

	b.handleUpdate(context.Background(), callbackUpdate("ord:n:999"))

	answer := tg.lastAnswer(t)
	assert.Equal(t, "Заказ не найден", answer.Text)
	assert.True(t, answer.ShowAlert)
	assert.Equal(t, session.StateNewOrdersList, store.state(t, operatorChat).State)
}

func TestStrayTextDeleted(t *testing.T) {
	b, tg, _, store := newTestBot()
	store.seed(operatorChat, session.StateMainMenu, nil)

	b.handleUpdate(context.Background(), textUpdate("привет"))

	require.Len(t, tg.deleted, 1, "свободный текст подчищается")
	assert.Equal(t, 600, tg.deleted[0].MessageID)
	assert.Zero(t, tg.sentCount(), "бот не отвечает на свободный текст")
	assert.Equal(t, session.StateMainMenu, store.state(t, operatorChat).State)
}

func TestEditSupplyBackNavigation(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow}}
	for i := 0; i < 12; i++ {
		client.ordersBySupply["WB-GI-1"] = append(client.ordersBySupply["WB-GI-1"], wb.Order{
			ID:        int64(100 + i),
			SupplyID:  "WB-GI-1",
			Article:   fmt.Sprintf("ART-%d", i),
			CreatedAt: testNow.Add(-time.Hour),
		})
	}
	store.seed(operatorChat, session.StateSupplyDetail, session.Payload{session.KeySupplyID: "WB-GI-1"})
	ctx := context.Background()

	// карточка поставки → список её заказов
	b.handleUpdate(ctx, callbackUpdate("sd:edit:WB-GI-1"))
	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateEditSupply, st.State)
	assert.Equal(t, "WB-GI-1", st.Payload[session.KeySupplyID])

	tokens := buttonTokens(keyboard(t, tg.lastMessage(t)))
	assert.Contains(t, tokens, "ord:s:WB-GI-1:100")
	assert.Contains(t, tokens, "es:page:1", "12 заказов не влезают в одну страницу")
	assert.Contains(t, tokens, "sup:open:WB-GI-1")

	// листание не меняет состояние
	b.handleUpdate(ctx, callbackUpdate("es:page:1"))
	st = store.state(t, operatorChat)
	assert.Equal(t, session.StateEditSupply, st.State)
	assert.Equal(t, "WB-GI-1", st.Payload[session.KeySupplyID])
	tokens = buttonTokens(keyboard(t, tg.lastMessage(t)))
	assert.Contains(t, tokens, "ord:s:WB-GI-1:110")
	assert.Contains(t, tokens, "es:page:0")

	// карточка заказа из контекста поставки: и перенос, и возврат
	// несут поставку прямо в токене
	b.handleUpdate(ctx, callbackUpdate("ord:s:WB-GI-1:105"))
	st = store.state(t, operatorChat)
	assert.Equal(t, session.StateOrderDetail, st.State)
	assert.Equal(t, "WB-GI-1", st.Payload[session.KeySupplyID])

	m := tg.lastMessage(t)
	assert.Contains(t, m.Text, "Номер заказа: 105")
	assert.Contains(t, m.Text, "Поставка: WB-GI-1")
	tokens = buttonTokens(keyboard(t, m))
	assert.Contains(t, tokens, "od:move:s:WB-GI-1:105")
	assert.Contains(t, tokens, "sd:edit:WB-GI-1", "возврат ведёт к заказам поставки, а не к новым")
	assert.NotContains(t, tokens, "od:move:n:105")
	assert.NotContains(t, tokens, "menu:orders")

	// назад — снова список заказов поставки
	b.handleUpdate(ctx, callbackUpdate("sd:edit:WB-GI-1"))
	assert.Equal(t, session.StateEditSupply, store.state(t, operatorChat).State)
}

func TestMoveOrderFromSupplyContext(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{
		{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow},
		{ID: "WB-GI-2", Name: "Октябрь", CreatedAt: testNow},
	}
	client.ordersBySupply["WB-GI-1"] = []wb.Order{
		{ID: 105, SupplyID: "WB-GI-1", Article: "ART-5", CreatedAt: testNow.Add(-time.Hour)},
	}
	store.seed(operatorChat, session.StateOrderDetail, session.Payload{session.KeySupplyID: "WB-GI-1"})

	b.handleUpdate(context.Background(), callbackUpdate("od:move:s:WB-GI-1:105"))

	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateSupplyChoice, st.State)
	assert.EqualValues(t, 105, st.Payload[session.KeyPendingOrder])

	tokens := buttonTokens(keyboard(t, tg.lastMessage(t)))
	assert.Contains(t, tokens, "ch:pick:WB-GI-2:105")
}

func TestConfirmCloseEntry(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow}}
	store.seed(operatorChat, session.StateSupplyDetail, session.Payload{session.KeySupplyID: "WB-GI-1"})

	b.handleUpdate(context.Background(), callbackUpdate("sd:close:WB-GI-1"))

	assert.Zero(t, client.callCount("close_supply"), "закрытие только после подтверждения")
	st := store.state(t, operatorChat)
	assert.Equal(t, session.StateConfirmClose, st.State)
	assert.Equal(t, "WB-GI-1", st.Payload[session.KeySupplyID])

	m := tg.lastMessage(t)
	assert.Contains(t, m.Text, "Отправить поставку WB-GI-1 в доставку?")
	tokens := buttonTokens(keyboard(t, m))
	assert.Contains(t, tokens, "cls:yes:WB-GI-1")
	assert.Contains(t, tokens, "cls:no")
}

func TestRunKeepsChatOrder(t *testing.T) {
	b, tg, client, store := newTestBot()
	client.supplies = []wb.Supply{{ID: "WB-GI-1", Name: "Сентябрь", CreatedAt: testNow}}

	updates := make(chan tgbotapi.Update, 12)
	var want []string
	for i := 0; i < 6; i++ {
		updates <- callbackUpdate("menu:supplies")
		want = append(want, "Текущие незакрытые поставки")
		updates <- callbackUpdate("menu:orders")
		want = append(want, "Новых заказов нет")
	}
	close(updates)

	require.NoError(t, b.Run(context.Background(), updates))

	assert.Equal(t, want, tg.messageTexts(), "события чата обработаны в порядке поступления")
	assert.Equal(t, session.StateNewOrdersList, store.state(t, operatorChat).State)
}

func TestRunDropsNonOperators(t *testing.T) {
	b, tg, _, store := newTestBot()

	updates := make(chan tgbotapi.Update, 2)
	stranger := textUpdate("/start")
	stranger.Message.Chat.ID = 9999
	updates <- stranger
	ops := textUpdate("/start")
	updates <- ops
	close(updates)

	require.NoError(t, b.Run(context.Background(), updates))

	assert.Equal(t, 1, tg.sentCount(), "ответ ушёл только оператору")
	assert.Equal(t, session.StateMainMenu, store.state(t, operatorChat).State)
	_, ok := store.items[9999]
	assert.False(t, ok, "чужой чат не оставляет следов")
}
