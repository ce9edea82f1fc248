package bot

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nstonic/WBSallerBot/internal/infra/metrics"
	"github.com/nstonic/WBSallerBot/internal/session"
	"github.com/nstonic/WBSallerBot/internal/wb"
)

// telegramAPI — часть Telegram-клиента, которой пользуется бот.
// *tgbotapi.BotAPI её реализует; в тестах подставляется фейк.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// marketplaceClient — операции WB API, нужные обработчикам.
// Реализуется *wb.Client.
type marketplaceClient interface {
	Supplies(ctx context.Context, onlyActive bool, limit int) ([]wb.Supply, error)
	Supply(ctx context.Context, supplyID string) (wb.Supply, error)
	SupplyOrders(ctx context.Context, supplyID string) ([]wb.Order, error)
	NewOrders(ctx context.Context) ([]wb.Order, error)
	CreateSupply(ctx context.Context, name string) (string, error)
	DeleteSupply(ctx context.Context, supplyID string) error
	CloseSupply(ctx context.Context, supplyID string) error
	AddOrderToSupply(ctx context.Context, supplyID string, orderID int64) error
	OrderStickers(ctx context.Context, orderIDs []int64) ([]wb.OrderQRCode, error)
	SupplyBarcode(ctx context.Context, supplyID string) (wb.SupplyQRCode, error)
	ProductsByArticles(ctx context.Context, articles []string) ([]wb.Product, error)
	ProductCards(ctx context.Context) iter.Seq2[wb.ProductCard, error]
}

// sessionStore — персистентное состояние диалога. Реализуется *session.Repo.
type sessionStore interface {
	Get(ctx context.Context, chatID int64) (*session.Item, error)
	Set(ctx context.Context, chatID int64, state session.State, payload session.Payload) error
}

type Bot struct {
	api      telegramAPI
	log      *slog.Logger
	wb       marketplaceClient
	sessions sessionStore

	operators     map[int64]bool
	suppliesLimit int
	pageSize      int
	now           func() time.Time
}

// chatQueueSize — буфер очереди одного чата; оператор физически не
// успевает нажать больше кнопок, чем помещается в буфер.
const chatQueueSize = 32

func New(api telegramAPI, log *slog.Logger, client marketplaceClient, sessions sessionStore,
	operators []int64, suppliesLimit, pageSize int) *Bot {

	allowed := make(map[int64]bool, len(operators))
	for _, id := range operators {
		allowed[id] = true
	}
	if suppliesLimit <= 0 {
		suppliesLimit = 50
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Bot{
		api: api, log: log, wb: client, sessions: sessions,
		operators: allowed, suppliesLimit: suppliesLimit, pageSize: pageSize,
		now: time.Now,
	}
}

// Run читает апдейты до отмены контекста. У каждого чата своя очередь
// и один воркер, поэтому события чата обрабатываются строго в порядке
// поступления; разные чаты идут параллельно. При остановке очереди
// дорабатываются до конца.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	var wg sync.WaitGroup
	queues := map[int64]chan tgbotapi.Update{}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			chatID, found := updateChatID(upd)
			if !found || !b.operators[chatID] {
				continue
			}
			q, ok := queues[chatID]
			if !ok {
				q = make(chan tgbotapi.Update, chatQueueSize)
				queues[chatID] = q
				wg.Add(1)
				go func() {
					defer wg.Done()
					for u := range q {
						b.handleUpdate(ctx, u)
					}
				}()
			}
			q <- upd
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		metrics.Updates.WithLabelValues("message").Inc()
		b.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		metrics.Updates.WithLabelValues("callback").Inc()
		b.onCallback(ctx, upd.CallbackQuery)
	}
}

func updateChatID(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}
