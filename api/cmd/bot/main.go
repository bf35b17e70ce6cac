package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"

	"segment-bot/api/internal/bot"
	"segment-bot/api/internal/config"
	"segment-bot/api/internal/httpserver"
	"segment-bot/api/internal/match"
	"segment-bot/api/internal/session"
	"segment-bot/api/internal/store"
	"segment-bot/api/internal/telegram"
	"segment-bot/api/internal/vision"
	"segment-bot/api/internal/vision/gemini"
	"segment-bot/api/internal/vision/yolo"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("config", "err", err)
	}

	// --- Postgres (опционально: без DSN статистика просто не ведётся) ---
	var (
		db   *sql.DB
		repo *store.DetectionRepo
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalw("sql.Open", "err", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			log.Fatalw("db.Ping", "err", err)
		}
		cancel()

		repo = store.NewDetectionRepo(db)
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.Init(ctx); err != nil {
			cancel()
			log.Fatalw("db schema", "err", err)
		}
		cancel()
		log.Infow("detection history enabled")
	}

	// Неудачная инициализация движка не валит процесс: бот продолжает
	// работать и отвечает на фото сообщением о недоступности детектора.
	eng := buildVisionEngine(cfg, log)

	sessions := session.NewStore()
	resolver := match.NewResolver(vision.CocoClasses)

	var recorder bot.Recorder
	if repo != nil {
		recorder = repo
	}
	engine := bot.New(sessions, resolver, eng, recorder, log)

	// --- Telegram ---
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalw("telegram", "err", err)
	}
	api.Debug = cfg.Debug
	log.Infow("authorized", "bot", api.Self.UserName)

	router := &telegram.Router{Bot: api, Engine: engine, Stats: repo, Log: log}

	httpserver.RegisterHealthz(func() error {
		if db == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	})

	addr := "0.0.0.0:" + cfg.Port
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		startWebhookMode(addr, api, router, cfg.WebhookURL, log)
	} else {
		startPollingMode(addr, api, router, log)
	}
}

// buildVisionEngine выбирает движок по конфигурации. nil означает работу
// в деградированном режиме без детекции.
func buildVisionEngine(cfg *config.Config, log *zap.SugaredLogger) vision.Engine {
	switch cfg.VisionEngine {
	case "yolo":
		cl := yolo.New(cfg.InferenceURL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cl.CheckHealth(ctx); err != nil {
			log.Errorw("yolo inference service unavailable", "url", cfg.InferenceURL, "err", err)
			return nil
		}
		log.Infow("vision engine ready", "engine", "yolo", "url", cfg.InferenceURL)
		return cl
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Errorw("gemini engine selected but GEMINI_API_KEY is empty")
			return nil
		}
		log.Infow("vision engine ready", "engine", "gemini", "model", cfg.GeminiModel)
		return gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		log.Errorw("unknown vision engine", "engine", cfg.VisionEngine)
		return nil
	}
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, api *tgbotapi.BotAPI, r *telegram.Router, baseURL string, log *zap.SugaredLogger) {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(api.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatalw("webhook", "err", err)
	}
	wh.DropPendingUpdates = true
	if _, err := api.Request(wh); err != nil {
		log.Fatalw("webhook register", "err", err)
	}

	// ListenForWebhook регистрирует обработчик на DefaultServeMux
	updates := api.ListenForWebhook(path)

	go func() {
		for upd := range updates {
			go r.HandleUpdate(upd)
		}
		log.Infow("webhook updates channel closed")
	}()

	log.Infow("webhook listening", "addr", addr, "path", path)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalw("http", "err", err)
	}
}

func startPollingMode(addr string, api *tgbotapi.BotAPI, r *telegram.Router, log *zap.SugaredLogger) {
	go func() {
		log.Infow("health server listening", "addr", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatalw("http", "err", err)
		}
	}()

	runPolling(context.Background(), api, log, func(upd tgbotapi.Update) {
		// по горутине на сообщение: инференс не блокирует приём апдейтов
		go r.HandleUpdate(upd)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, api *tgbotapi.BotAPI, log *zap.SugaredLogger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Infow("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := api.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Warnw("polling error", "err", err, "retry_in", d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// shortHash — лёгкий FNV-хэш токена для пути вебхука (не крипто).
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
