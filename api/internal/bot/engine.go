// Package bot реализует диалоговую машину состояний: фото → детекция →
// выбор классов текстом → сегментация. Пакет не знает о транспорте:
// обработчики возвращают упорядоченный список исходящих сообщений,
// доставку выполняет адаптер (api/internal/telegram).
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"segment-bot/api/internal/match"
	"segment-bot/api/internal/session"
	"segment-bot/api/internal/vision"
)

// hintLimit — сколько имён классов показывать в подсказке-примере.
const hintLimit = 5

// Reply — одно исходящее сообщение: текст либо фото с подписью.
type Reply struct {
	Text    string
	Photo   []byte
	Caption string
}

func textReply(s string) Reply { return Reply{Text: s} }

func photoReply(b []byte, caption string) Reply { return Reply{Photo: b, Caption: caption} }

// Recorder пишет историю детекций (best effort, вне критического пути).
type Recorder interface {
	RecordDetection(ctx context.Context, userID int64, classes []string, counts map[string]int) error
}

// Engine — диалоговая машина состояний, по одной сессии на пользователя.
type Engine struct {
	sessions *session.Store
	resolver *match.Resolver
	vision   vision.Engine // nil — детектор недоступен, фото отклоняются
	recorder Recorder      // nil — история не ведётся
	log      *zap.SugaredLogger
}

func New(sessions *session.Store, resolver *match.Resolver, eng vision.Engine, rec Recorder, log *zap.SugaredLogger) *Engine {
	return &Engine{
		sessions: sessions,
		resolver: resolver,
		vision:   eng,
		recorder: rec,
		log:      log,
	}
}

// HandleStart создаёт свежую сессию, затирая любую предыдущую.
func (e *Engine) HandleStart(userID int64) []Reply {
	e.sessions.WithLock(userID, func() {
		e.sessions.Set(userID, &session.Session{State: session.StateWaitingPhoto})
	})
	return []Reply{textReply(msgStart)}
}

// HandleHelp отвечает справкой; сессия не требуется и не меняется.
func (e *Engine) HandleHelp(userID int64) []Reply {
	return []Reply{textReply(msgHelp)}
}

// HandlePhoto прогоняет фото через детекцию. При ненулевом результате
// сессия перезаписывается целиком и диалог переходит к выбору классов.
func (e *Engine) HandlePhoto(ctx context.Context, userID int64, image []byte) []Reply {
	var replies []Reply
	e.sessions.WithLock(userID, func() {
		replies = e.handlePhoto(ctx, userID, image)
	})
	return replies
}

func (e *Engine) handlePhoto(ctx context.Context, userID int64, image []byte) []Reply {
	if e.vision == nil {
		return []Reply{textReply(msgDetectorUnavailable)}
	}

	det, err := e.vision.Detect(ctx, image)
	if err != nil {
		e.log.Errorw("detection failed", "user", userID, "err", err)
		return []Reply{textReply(msgProcessingError)}
	}
	if len(det.Classes) == 0 {
		// сессию не трогаем: пользователь присылает новое фото
		return []Reply{textReply(msgNoObjects)}
	}

	e.sessions.Set(userID, &session.Session{
		State:           session.StateWaitingSelection,
		ImageBytes:      image,
		DetectedClasses: det.Classes,
		ClassCounts:     det.Counts,
		AnnotatedBytes:  det.Annotated,
	})
	e.record(userID, det)

	return []Reply{
		photoReply(det.Annotated, msgAnnotatedCaption),
		textReply(detectionSummary(det)),
	}
}

// record пишет событие детекции в историю отдельной горутиной,
// чтобы не задерживать ответ пользователю.
func (e *Engine) record(userID int64, det vision.Detection) {
	if e.recorder == nil {
		return
	}
	classes := append([]string(nil), det.Classes...)
	counts := make(map[string]int, len(det.Counts))
	for k, v := range det.Counts {
		counts[k] = v
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.recorder.RecordDetection(ctx, userID, classes, counts); err != nil {
			e.log.Warnw("detection history write failed", "user", userID, "err", err)
		}
	}()
}

func detectionSummary(det vision.Detection) string {
	var b strings.Builder
	b.WriteString("✅ Найдены объекты:\n")
	for _, cls := range det.Classes {
		fmt.Fprintf(&b, "• %s (%d шт.)\n", cls, det.Counts[cls])
	}
	b.WriteString("\nНапиши, какие классы сегментировать.")

	hints := make([]string, 0, hintLimit)
	for _, cls := range det.Classes {
		if len(hints) == hintLimit {
			break
		}
		hints = append(hints, vision.DisplayName(cls))
	}
	hint := strings.Join(hints, " ")
	if len(det.Classes) > hintLimit {
		hint += " ..."
	}
	fmt.Fprintf(&b, "\n\n💡 Пример: %s", hint)
	return b.String()
}

// HandleText маршрутизирует текст по состоянию сессии.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string) []Reply {
	var replies []Reply
	e.sessions.WithLock(userID, func() {
		replies = e.handleText(ctx, userID, text)
	})
	return replies
}

func (e *Engine) handleText(ctx context.Context, userID int64, text string) []Reply {
	sess := e.sessions.Get(userID)
	if sess == nil {
		return []Reply{textReply(msgNoSession)}
	}

	switch sess.State {
	case session.StateWaitingPhoto:
		return []Reply{textReply(msgNeedPhoto)}
	case session.StateWaitingSelection:
		return e.handleSelection(ctx, userID, sess, text)
	default:
		// включая зависшую processing_segmentation: выход через новое фото или /start
		return []Reply{textReply(msgRestart)}
	}
}

// handleSelection разбирает выбор классов и, если выбран хотя бы один,
// синхронно выполняет сегментацию: подтверждение выбора всегда уходит
// раньше масок.
func (e *Engine) handleSelection(ctx context.Context, userID int64, sess *session.Session, text string) []Reply {
	tokens := match.Tokenize(text)
	if len(tokens) == 0 {
		return []Reply{textReply(msgParseFail)}
	}

	res := e.resolver.Match(tokens, sess.DetectedClasses)
	replies := []Reply{textReply(selectionReport(res, sess.DetectedClasses))}

	if len(res.Resolved) == 0 {
		// остаёмся в выборе классов, пользователь может повторить
		return replies
	}

	sess.SelectedClasses = res.Resolved
	sess.State = session.StateSegmenting
	replies = append(replies, textReply(msgSegmentationStart))

	return append(replies, e.segment(ctx, userID, sess)...)
}

// selectionReport собирает ответ о результатах сопоставления: выбранные
// классы с исправлениями, затем нераспознанные токены со списком доступного.
func selectionReport(res match.Result, detected []string) string {
	var parts []string

	if len(res.Resolved) > 0 {
		part := "✅ Выбраны классы: " + strings.Join(res.Resolved, ", ")
		if len(res.Corrections) > 0 {
			lines := make([]string, 0, len(res.Corrections))
			for _, c := range res.Corrections {
				lines = append(lines, fmt.Sprintf("  • '%s' → '%s'", c.Token, c.Class))
			}
			part += "\n\n🔄 Исправления:\n" + strings.Join(lines, "\n")
		}
		parts = append(parts, part)
	}

	if len(res.Unresolved) > 0 {
		parts = append(parts, "❌ Не найдены: "+strings.Join(res.Unresolved, ", "))

		available := make([]string, 0, len(detected))
		for _, cls := range detected {
			available = append(available, vision.DisplayName(cls))
		}
		parts = append(parts, "📋 Доступные: "+strings.Join(available, ", "))
	}

	return strings.Join(parts, "\n\n")
}

// segment вызывает сегментацию для выбранных классов и формирует маски
// и итоговую сводку. При сбое вызова состояние намеренно не сбрасывается —
// так вёл себя исходный бот, выход для пользователя — /start или новое фото.
func (e *Engine) segment(ctx context.Context, userID int64, sess *session.Session) []Reply {
	results, err := e.vision.Segment(ctx, sess.ImageBytes, sess.SelectedClasses)
	if err != nil {
		e.log.Errorw("segmentation failed", "user", userID, "err", err)
		return []Reply{textReply(msgProcessingError)}
	}

	var replies []Reply
	var successful, failed []string
	for _, cls := range sess.SelectedClasses {
		mask, ok := results[cls]
		if !ok {
			failed = append(failed, cls)
			continue
		}
		successful = append(successful, cls)
		replies = append(replies, photoReply(mask, "🎯 Сегментация: "+cls))
	}

	replies = append(replies, textReply(finalSummary(successful, failed, sess.ClassCounts)))
	sess.State = session.StateWaitingPhoto
	return replies
}

func finalSummary(successful, failed []string, counts map[string]int) string {
	var parts []string

	if len(successful) > 0 {
		parts = append(parts, "📊 Результаты сегментации:")
		for _, cls := range successful {
			parts = append(parts, fmt.Sprintf("• %s: %d шт.", cls, counts[cls]))
		}
	}

	if len(failed) > 0 {
		parts = append(parts, "\n❌ Не удалось сегментировать:")
		for _, cls := range failed {
			if en, ok := vision.EnglishName(cls); ok {
				parts = append(parts, fmt.Sprintf("• %s (попробуйте '%s')", cls, en))
			} else {
				parts = append(parts, "• "+cls)
			}
		}
	}

	total := 0
	for _, cls := range successful {
		total += counts[cls]
	}
	if total > 0 {
		parts = append(parts, fmt.Sprintf("\n🎉 Всего обработано объектов: %d", total))
	}

	parts = append(parts, "\n💡 Отправьте новое фото для анализа!")
	return strings.Join(parts, "\n")
}
