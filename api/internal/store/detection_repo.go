package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

var ErrNotFound = sql.ErrNoRows

// DetectionRepo пишет историю детекций. История — побочный журнал для
// статистики, состояние диалога в базе не хранится.
type DetectionRepo struct{ DB *sql.DB }

func NewDetectionRepo(db *sql.DB) *DetectionRepo { return &DetectionRepo{DB: db} }

// Schema — таблица журнала. Применяется на старте бота.
const Schema = `
create table if not exists detections (
    id          bigserial primary key,
    created_at  timestamptz not null default now(),
    chat_id     bigint not null,
    classes     jsonb not null,
    counts      jsonb not null,
    total       int not null
);
create index if not exists detections_chat_idx on detections (chat_id);`

// Init создаёт таблицу журнала, если её ещё нет.
func (r *DetectionRepo) Init(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, Schema)
	return err
}

// RecordDetection сохраняет одно событие детекции.
func (r *DetectionRepo) RecordDetection(ctx context.Context, chatID int64, classes []string, counts map[string]int) error {
	classesJSON, _ := json.Marshal(classes)
	countsJSON, _ := json.Marshal(counts)

	total := 0
	for _, n := range counts {
		total += n
	}

	const q = `insert into detections (chat_id, classes, counts, total) values ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, q, chatID, classesJSON, countsJSON, total)
	return err
}

// ChatStats — накопленная статистика одного чата.
type ChatStats struct {
	Photos       int64
	TotalObjects int64
	LastAt       time.Time
}

// Stats возвращает статистику чата; ErrNotFound, если детекций ещё не было.
func (r *DetectionRepo) Stats(ctx context.Context, chatID int64) (ChatStats, error) {
	const q = `
select count(*), coalesce(sum(total), 0), coalesce(max(created_at), to_timestamp(0))
from detections
where chat_id = $1`
	var st ChatStats
	if err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&st.Photos, &st.TotalObjects, &st.LastAt); err != nil {
		return ChatStats{}, err
	}
	if st.Photos == 0 {
		return ChatStats{}, ErrNotFound
	}
	return st, nil
}

// PurgeOlderThan удаляет старые записи журнала, чтобы не раздувать базу.
func (r *DetectionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from detections where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
