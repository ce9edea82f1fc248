package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier — часть пула pgx, которой пользуется репозиторий.
// *pgxpool.Pool её реализует; в тестах подставляется фейк.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repo хранит состояние диалога по chat_id. Записи перезаписываются
// целиком (last-write-wins): каждым чатом управляет один оператор,
// оптимистичные блокировки тут не нужны.
type Repo struct {
	db querier
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{db: pool} }

// Get возвращает состояние чата. Отсутствующая запись и неизвестный
// токен считаются начальным состоянием; прочие ошибки базы (обрыв
// соединения и т.п.) отдаются наружу, а не маскируются под новый чат.
func (r *Repo) Get(ctx context.Context, chatID int64) (*Item, error) {
	row := r.db.QueryRow(ctx, `SELECT state, payload FROM sessions WHERE chat_id = $1`, chatID)
	var state string
	var raw []byte
	switch err := row.Scan(&state, &raw); {
	case errors.Is(err, pgx.ErrNoRows):
		return &Item{ChatID: chatID, State: StateStart, Payload: Payload{}}, nil
	case err != nil:
		return nil, fmt.Errorf("session read: %w", err)
	}
	if !Known(State(state)) {
		return &Item{ChatID: chatID, State: StateStart, Payload: Payload{}}, nil
	}
	var p Payload
	_ = json.Unmarshal(raw, &p)
	if p == nil {
		p = Payload{}
	}
	return &Item{ChatID: chatID, State: State(state), Payload: p}, nil
}

func (r *Repo) Set(ctx context.Context, chatID int64, state State, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	raw, _ := json.Marshal(payload)
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (chat_id, state, payload, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (chat_id) DO UPDATE SET
		  state=$2, payload=$3, updated_at=now()
	`, chatID, string(state), raw)
	return err
}
