package vision

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable — движок не сконфигурирован или не прошёл инициализацию.
// Бот продолжает работать в деградированном режиме и отклоняет фото.
var ErrUnavailable = errors.New("vision: engine unavailable")

// Detection — результат детекции объектов на изображении.
type Detection struct {
	// Classes — уникальные канонические (русские) имена классов
	// в порядке обнаружения.
	Classes []string
	// Counts — количество объектов каждого класса.
	Counts map[string]int
	// Annotated — изображение с нарисованными рамками (JPEG/PNG).
	Annotated []byte
}

// Engine — абстракция над моделью детекции/сегментации.
type Engine interface {
	Name() string

	// Detect находит объекты на изображении и возвращает аннотированную копию.
	Detect(ctx context.Context, image []byte) (Detection, error)

	// Segment строит маски для перечисленных канонических классов.
	// Классы, для которых маску построить не удалось, в карте отсутствуют;
	// пустая карта — валидный результат.
	Segment(ctx context.Context, image []byte, classes []string) (map[string][]byte, error)
}

// DetectionError — сбой вызова детекции (битое изображение, ошибка модели).
type DetectionError struct {
	Engine string
	Err    error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detect (%s): %v", e.Engine, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// SegmentationError — нарушение контракта сегментации (движок недоступен,
// транспортный сбой). Отсутствие маски для класса ошибкой не является.
type SegmentationError struct {
	Engine string
	Err    error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segment (%s): %v", e.Engine, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }
