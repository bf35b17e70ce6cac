// Package telegram — адаптер между Telegram Bot API и диалоговой машиной.
// Роутер скачивает фото, передаёт события движку и доставляет его ответы
// по порядку.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"segment-bot/api/internal/bot"
	"segment-bot/api/internal/store"
)

type Router struct {
	Bot    *tgbotapi.BotAPI
	Engine *bot.Engine
	Stats  *store.DetectionRepo // nil — статистика не ведётся
	Log    *zap.SugaredLogger
}

// HandleUpdate обрабатывает один апдейт. Вызывается в отдельной горутине
// на каждое сообщение: инференс одного пользователя не блокирует приём
// сообщений остальных, а порядок внутри чата обеспечивает движок.
func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := *upd.Message

	switch {
	case msg.IsCommand():
		r.handleCommand(msg)
	case len(msg.Photo) > 0:
		r.handlePhoto(msg)
	case msg.Text != "":
		r.deliver(msg.Chat.ID, r.Engine.HandleText(context.Background(), msg.Chat.ID, msg.Text))
	}
}

func (r *Router) handleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.deliver(cid, r.Engine.HandleStart(cid))
	case "help":
		r.deliver(cid, r.Engine.HandleHelp(cid))
	case "health":
		r.send(cid, "✅ OK")
	case "stats":
		r.sendStats(cid)
	default:
		r.send(cid, "Неизвестная команда. Доступны: /start, /help, /stats")
	}
}

func (r *Router) handlePhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	r.send(cid, "📸 Фото получено, обрабатываю...")

	// берём самое большое превью
	ph := msg.Photo[len(msg.Photo)-1]
	img, err := r.downloadFile(ph.FileID)
	if err != nil {
		r.Log.Errorw("photo download failed", "chat", cid, "err", err)
		r.send(cid, "⚠️ Не удалось скачать фото. Попробуйте ещё раз.")
		return
	}

	r.deliver(cid, r.Engine.HandlePhoto(context.Background(), cid, img))
}

func (r *Router) sendStats(cid int64) {
	if r.Stats == nil {
		r.send(cid, "📊 Статистика не ведётся: база данных не подключена.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := r.Stats.Stats(ctx, cid)
	if errors.Is(err, store.ErrNotFound) {
		r.send(cid, "📊 Пока нечего показать: пришлите первое фото.")
		return
	}
	if err != nil {
		r.Log.Errorw("stats query failed", "chat", cid, "err", err)
		r.send(cid, "⚠️ Не удалось получить статистику.")
		return
	}
	r.send(cid, fmt.Sprintf(
		"📊 Ваша статистика:\n• фотографий обработано: %d\n• объектов найдено: %d\n• последняя детекция: %s",
		st.Photos, st.TotalObjects, st.LastAt.Format("02.01.2006 15:04"),
	))
}

// deliver отправляет ответы движка в исходном порядке.
func (r *Router) deliver(cid int64, replies []bot.Reply) {
	for _, rep := range replies {
		if rep.Photo != nil {
			photo := tgbotapi.NewPhoto(cid, tgbotapi.FileBytes{Name: "result.jpg", Bytes: rep.Photo})
			photo.Caption = rep.Caption
			if _, err := r.Bot.Send(photo); err != nil {
				r.Log.Errorw("send photo failed", "chat", cid, "err", err)
			}
			continue
		}
		r.send(cid, rep.Text)
	}
}

func (r *Router) send(cid int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(cid, text)); err != nil {
		r.Log.Errorw("send message failed", "chat", cid, "err", err)
	}
}

// downloadFile скачивает файл с серверов Telegram по file_id.
func (r *Router) downloadFile(fileID string) ([]byte, error) {
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
