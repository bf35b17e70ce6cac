// Package yolo — клиент HTTP-сервиса инференса YOLO. Сам инференс живёт
// в отдельном сервисе с моделью; клиент только гоняет байты и переводит
// имена классов COCO в канонические русские.
package yolo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"segment-bot/api/internal/vision"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Name() string { return "yolo" }

type detectResponse struct {
	Classes   []string       `json:"classes"`
	Counts    map[string]int `json:"counts"`
	Annotated string         `json:"annotated_image"` // base64 JPEG
}

type segmentResponse struct {
	Masks map[string]string `json:"masks"` // класс COCO -> base64 JPEG
}

// Detect отправляет фото сервису инференса и возвращает найденные классы
// под каноническими русскими именами, с сохранением порядка обнаружения.
func (c *Client) Detect(ctx context.Context, img []byte) (vision.Detection, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return vision.Detection{}, &vision.DetectionError{Engine: c.Name(), Err: fmt.Errorf("bad image: %w", err)}
	}

	var out detectResponse
	if err := c.post(ctx, "/detect", img, nil, &out); err != nil {
		return vision.Detection{}, &vision.DetectionError{Engine: c.Name(), Err: err}
	}

	annotated, err := base64.StdEncoding.DecodeString(out.Annotated)
	if err != nil {
		return vision.Detection{}, &vision.DetectionError{Engine: c.Name(), Err: fmt.Errorf("bad annotated image: %w", err)}
	}

	det := vision.Detection{
		Classes:   make([]string, 0, len(out.Classes)),
		Counts:    make(map[string]int, len(out.Counts)),
		Annotated: annotated,
	}
	for _, en := range out.Classes {
		det.Classes = append(det.Classes, vision.CanonicalName(en))
	}
	for en, n := range out.Counts {
		det.Counts[vision.CanonicalName(en)] = n
	}
	return det, nil
}

// Segment запрашивает маски для классов. Сервису имена уходят английскими,
// результат переводится обратно в канонические. Класс без маски в ответе
// отсутствует — это не ошибка.
func (c *Client) Segment(ctx context.Context, img []byte, classes []string) (map[string][]byte, error) {
	english := make([]string, 0, len(classes))
	for _, cls := range classes {
		if en, ok := vision.EnglishName(cls); ok {
			english = append(english, en)
		} else {
			english = append(english, cls)
		}
	}

	var out segmentResponse
	fields := map[string]string{"classes": strings.Join(english, ",")}
	if err := c.post(ctx, "/segment", img, fields, &out); err != nil {
		return nil, &vision.SegmentationError{Engine: c.Name(), Err: err}
	}

	masks := make(map[string][]byte, len(out.Masks))
	for en, b64 := range out.Masks {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, &vision.SegmentationError{Engine: c.Name(), Err: fmt.Errorf("bad mask for %q: %w", en, err)}
		}
		masks[vision.CanonicalName(en)] = raw
	}
	return masks, nil
}

// post загружает изображение multipart-запросом и декодирует JSON-ответ.
func (c *Client) post(ctx context.Context, path string, img []byte, fields map[string]string, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(img)); err != nil {
		return fmt.Errorf("copy image data: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("inference status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CheckHealth проверяет доступность сервиса инференса при старте.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
