// Package gemini — альтернативный движок детекции на Gemini Vision.
// Модель возвращает объекты строгим JSON с нормализованными рамками,
// аннотированное изображение рисуется локально. Масок сегментации движок
// не умеет и честно возвращает пустой результат.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"segment-bot/api/internal/vision"
)

const systemPrompt = `Ты — модуль детекции объектов. Найди на изображении все объекты
из набора классов COCO и верни строго JSON-массив без комментариев:
[{"name": "<имя класса COCO по-английски>", "box": [ymin, xmin, ymax, xmax]}]
Координаты рамок нормализованы в диапазон 0–1000. Любой текст вне JSON — ошибка.`

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

type detectedObject struct {
	Name string `json:"name"`
	Box  [4]int `json:"box"` // ymin, xmin, ymax, xmax в 0..1000
}

// Detect запрашивает у модели список объектов и рисует рамки поверх фото.
func (e *Engine) Detect(ctx context.Context, img []byte) (vision.Detection, error) {
	if e.APIKey == "" {
		return vision.Detection{}, vision.ErrUnavailable
	}

	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return vision.Detection{}, &vision.DetectionError{Engine: e.Name(), Err: fmt.Errorf("bad image: %w", err)}
	}

	objects, err := e.listObjects(ctx, img)
	if err != nil {
		return vision.Detection{}, &vision.DetectionError{Engine: e.Name(), Err: err}
	}
	if len(objects) == 0 {
		return vision.Detection{}, nil
	}

	det := vision.Detection{Counts: make(map[string]int, len(objects))}
	for _, obj := range objects {
		cls := vision.CanonicalName(strings.ToLower(strings.TrimSpace(obj.Name)))
		if det.Counts[cls] == 0 {
			det.Classes = append(det.Classes, cls)
		}
		det.Counts[cls]++
	}

	annotated, err := drawBoxes(src, objects)
	if err != nil {
		return vision.Detection{}, &vision.DetectionError{Engine: e.Name(), Err: err}
	}
	det.Annotated = annotated
	return det, nil
}

// Segment не поддерживается этим движком: пустая карта означает,
// что ни для одного класса маску построить не удалось.
func (e *Engine) Segment(ctx context.Context, img []byte, classes []string) (map[string][]byte, error) {
	return map[string][]byte{}, nil
}

func (e *Engine) listObjects(ctx context.Context, img []byte) ([]detectedObject, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	parts := []genai.Part{
		genai.Text("Найди объекты. Ответ строго JSON-массивом по схеме из инструкции."),
		&genai.Blob{MIMEType: sniffMIME(img), Data: img},
	}

	// ретраи на транзиентные сбои, как и в остальных наших клиентах Gemini
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := strings.TrimSpace(stripCodeFences(firstText(resp)))
		if txt == "" {
			return nil, errors.New("gemini: empty response")
		}
		var objects []detectedObject
		if err := json.Unmarshal([]byte(txt), &objects); err != nil {
			return nil, fmt.Errorf("gemini: bad JSON: %w", err)
		}
		return objects, nil
	}
	return nil, lastErr
}

// drawBoxes рисует красные рамки по нормализованным координатам модели.
func drawBoxes(src image.Image, objects []detectedObject) ([]byte, error) {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	w := bounds.Dx()
	h := bounds.Dy()
	red := color.RGBA{R: 220, A: 255}

	for _, obj := range objects {
		y0 := bounds.Min.Y + obj.Box[0]*h/1000
		x0 := bounds.Min.X + obj.Box[1]*w/1000
		y1 := bounds.Min.Y + obj.Box[2]*h/1000
		x1 := bounds.Min.X + obj.Box[3]*w/1000
		drawRect(dst, image.Rect(x0, y0, x1, y1).Intersect(bounds), red, 3)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Set(x, r.Min.Y+t, c)
			dst.Set(x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			dst.Set(r.Min.X+t, y, c)
			dst.Set(r.Max.X-1-t, y, c)
		}
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				return string(txt)
			}
		}
	}
	return ""
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func sniffMIME(b []byte) string {
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 {
		return "image/png"
	}
	return "image/jpeg"
}

func ptrFloat32(v float32) *float32 { return &v }
