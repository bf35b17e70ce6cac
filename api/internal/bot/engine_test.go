package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"segment-bot/api/internal/match"
	"segment-bot/api/internal/session"
	"segment-bot/api/internal/vision"
)

type fakeVision struct {
	det    vision.Detection
	detErr error

	masks    map[string][]byte
	segErr   error
	segCalls [][]string
}

func (f *fakeVision) Name() string { return "fake" }

func (f *fakeVision) Detect(ctx context.Context, image []byte) (vision.Detection, error) {
	return f.det, f.detErr
}

func (f *fakeVision) Segment(ctx context.Context, image []byte, classes []string) (map[string][]byte, error) {
	f.segCalls = append(f.segCalls, append([]string(nil), classes...))
	if f.segErr != nil {
		return nil, f.segErr
	}
	return f.masks, nil
}

func newTestEngine(v vision.Engine) (*Engine, *session.Store) {
	sessions := session.NewStore()
	resolver := match.NewResolver(vision.CocoClasses)
	return New(sessions, resolver, v, nil, zap.NewNop().Sugar()), sessions
}

func allText(replies []Reply) string {
	var b strings.Builder
	for _, r := range replies {
		b.WriteString(r.Text)
		b.WriteString(r.Caption)
		b.WriteString("\n")
	}
	return b.String()
}

func photoCount(replies []Reply) int {
	n := 0
	for _, r := range replies {
		if r.Photo != nil {
			n++
		}
	}
	return n
}

func TestStartCreatesFreshSession(t *testing.T) {
	e, sessions := newTestEngine(&fakeVision{})

	replies := e.HandleStart(1)
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "Привет")

	sess := sessions.Get(1)
	require.NotNil(t, sess)
	require.Equal(t, session.StateWaitingPhoto, sess.State)
}

func TestStartOverwritesStuckSession(t *testing.T) {
	e, sessions := newTestEngine(&fakeVision{})
	sessions.Set(1, &session.Session{
		State:           session.StateSegmenting,
		DetectedClasses: []string{"человек"},
		SelectedClasses: []string{"человек"},
	})

	e.HandleStart(1)

	sess := sessions.Get(1)
	require.Equal(t, session.StateWaitingPhoto, sess.State)
	require.Empty(t, sess.DetectedClasses)
	require.Empty(t, sess.SelectedClasses)
}

func TestHelpDoesNotTouchSession(t *testing.T) {
	e, sessions := newTestEngine(&fakeVision{})

	replies := e.HandleHelp(1)
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "Как пользоваться")
	require.Nil(t, sessions.Get(1))
}

func TestPhotoDetectorUnavailable(t *testing.T) {
	e, _ := newTestEngine(nil)

	replies := e.HandlePhoto(context.Background(), 1, []byte("jpg"))
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "недоступен")
}

func TestPhotoNoObjects(t *testing.T) {
	e, sessions := newTestEngine(&fakeVision{})
	e.HandleStart(1)

	replies := e.HandlePhoto(context.Background(), 1, []byte("jpg"))
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "не найдены")

	// сессия не обновляется: ни фото, ни классов
	sess := sessions.Get(1)
	require.Equal(t, session.StateWaitingPhoto, sess.State)
	require.Nil(t, sess.ImageBytes)
	require.Empty(t, sess.DetectedClasses)
}

func TestPhotoDetectionError(t *testing.T) {
	fv := &fakeVision{detErr: &vision.DetectionError{Engine: "fake", Err: errors.New("boom")}}
	e, sessions := newTestEngine(fv)
	e.HandleStart(1)

	replies := e.HandlePhoto(context.Background(), 1, []byte("jpg"))
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "Ошибка обработки")
	require.Equal(t, session.StateWaitingPhoto, sessions.Get(1).State)
}

func TestPhotoWithDetections(t *testing.T) {
	fv := &fakeVision{det: vision.Detection{
		Classes:   []string{"человек", "собака"},
		Counts:    map[string]int{"человек": 2, "собака": 1},
		Annotated: []byte("annotated"),
	}}
	e, sessions := newTestEngine(fv)

	replies := e.HandlePhoto(context.Background(), 1, []byte("original"))
	require.Len(t, replies, 2)
	require.Equal(t, []byte("annotated"), replies[0].Photo)
	require.Contains(t, replies[0].Caption, "рамками")
	require.Contains(t, replies[1].Text, "человек (2 шт.)")
	require.Contains(t, replies[1].Text, "собака (1 шт.)")
	// подсказка с английскими именами
	require.Contains(t, replies[1].Text, "person dog")

	sess := sessions.Get(1)
	require.Equal(t, session.StateWaitingSelection, sess.State)
	require.Equal(t, []byte("original"), sess.ImageBytes)
	require.Equal(t, []string{"человек", "собака"}, sess.DetectedClasses)
}

func TestDetectionHintTruncated(t *testing.T) {
	classes := []string{"человек", "собака", "кот", "автомобиль", "велосипед", "птица"}
	counts := map[string]int{}
	for _, c := range classes {
		counts[c] = 1
	}
	fv := &fakeVision{det: vision.Detection{Classes: classes, Counts: counts, Annotated: []byte("a")}}
	e, _ := newTestEngine(fv)

	replies := e.HandlePhoto(context.Background(), 1, []byte("img"))
	require.Contains(t, replies[1].Text, "person dog cat car bicycle ...")
}

func TestTextWithoutSession(t *testing.T) {
	e, _ := newTestEngine(&fakeVision{})

	replies := e.HandleText(context.Background(), 1, "person")
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "/start")
}

func TestTextWhileWaitingPhoto(t *testing.T) {
	e, _ := newTestEngine(&fakeVision{})
	e.HandleStart(1)

	replies := e.HandleText(context.Background(), 1, "person")
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "фото")
}

func TestTextUnparseable(t *testing.T) {
	e, sessions := newTestEngine(&fakeVision{})
	sessions.Set(1, &session.Session{
		State:           session.StateWaitingSelection,
		DetectedClasses: []string{"человек"},
		ClassCounts:     map[string]int{"человек": 1},
	})

	replies := e.HandleText(context.Background(), 1, "?! .")
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "Не удалось распознать")
	require.Equal(t, session.StateWaitingSelection, sessions.Get(1).State)
}

func TestTextNothingResolved(t *testing.T) {
	e, sessions := newTestEngine(&fakeVision{})
	sessions.Set(1, &session.Session{
		State:           session.StateWaitingSelection,
		DetectedClasses: []string{"человек"},
		ClassCounts:     map[string]int{"человек": 1},
	})

	replies := e.HandleText(context.Background(), 1, "xyz123")
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "Не найдены: xyz123")
	require.Contains(t, replies[0].Text, "Доступные: person")
	// пользователь может повторить выбор
	require.Equal(t, session.StateWaitingSelection, sessions.Get(1).State)
}

func TestSelectionRunsSegmentation(t *testing.T) {
	fv := &fakeVision{
		det: vision.Detection{
			Classes:   []string{"человек", "собака"},
			Counts:    map[string]int{"человек": 2, "собака": 1},
			Annotated: []byte("annotated"),
		},
		masks: map[string][]byte{
			"человек": []byte("mask-person"),
			"собака":  []byte("mask-dog"),
		},
	}
	e, sessions := newTestEngine(fv)

	e.HandlePhoto(context.Background(), 1, []byte("original"))
	replies := e.HandleText(context.Background(), 1, "person dog")

	text := allText(replies)
	require.Contains(t, text, "Выбраны классы: человек, собака")
	require.Contains(t, text, "Начинаю сегментацию")
	require.Equal(t, 2, photoCount(replies))
	require.Contains(t, text, "человек: 2 шт.")
	require.Contains(t, text, "собака: 1 шт.")
	require.Contains(t, text, "Всего обработано объектов: 3")
	require.Contains(t, text, "новое фото")

	// подтверждение выбора всегда идёт раньше масок
	require.NotEmpty(t, replies[0].Text)
	require.Nil(t, replies[0].Photo)

	require.Equal(t, [][]string{{"человек", "собака"}}, fv.segCalls)

	sess := sessions.Get(1)
	require.Equal(t, session.StateWaitingPhoto, sess.State)
	require.Equal(t, []string{"человек", "собака"}, sess.SelectedClasses)
}

func TestSelectionWithTypoCorrection(t *testing.T) {
	fv := &fakeVision{
		det: vision.Detection{
			Classes:   []string{"автомобиль"},
			Counts:    map[string]int{"автомобиль": 1},
			Annotated: []byte("a"),
		},
		masks: map[string][]byte{"автомобиль": []byte("mask")},
	}
	e, _ := newTestEngine(fv)

	e.HandlePhoto(context.Background(), 1, []byte("img"))
	replies := e.HandleText(context.Background(), 1, "carr")

	text := allText(replies)
	require.Contains(t, text, "Исправления")
	require.Contains(t, text, "'carr' → 'автомобиль'")
}

func TestSegmentationPartialFailure(t *testing.T) {
	fv := &fakeVision{
		det: vision.Detection{
			Classes:   []string{"человек", "собака"},
			Counts:    map[string]int{"человек": 2, "собака": 1},
			Annotated: []byte("a"),
		},
		// маска только для человека
		masks: map[string][]byte{"человек": []byte("mask")},
	}
	e, sessions := newTestEngine(fv)

	e.HandlePhoto(context.Background(), 1, []byte("img"))
	replies := e.HandleText(context.Background(), 1, "человек собака")

	text := allText(replies)
	require.Equal(t, 1, photoCount(replies))
	require.Contains(t, text, "Не удалось сегментировать")
	require.Contains(t, text, "собака (попробуйте 'dog')")
	require.Contains(t, text, "Всего обработано объектов: 2")

	require.Equal(t, session.StateWaitingPhoto, sessions.Get(1).State)
}

func TestSegmentationErrorKeepsState(t *testing.T) {
	fv := &fakeVision{
		det: vision.Detection{
			Classes:   []string{"человек"},
			Counts:    map[string]int{"человек": 1},
			Annotated: []byte("a"),
		},
		segErr: &vision.SegmentationError{Engine: "fake", Err: errors.New("down")},
	}
	e, sessions := newTestEngine(fv)

	e.HandlePhoto(context.Background(), 1, []byte("img"))
	replies := e.HandleText(context.Background(), 1, "person")

	text := allText(replies)
	require.Contains(t, text, "Ошибка обработки")
	// состояние не сбрасывается, выход — /start или новое фото
	require.Equal(t, session.StateSegmenting, sessions.Get(1).State)

	// следующий текст упирается в подсказку начать заново
	replies = e.HandleText(context.Background(), 1, "person")
	require.Contains(t, allText(replies), "/start")
}
