// Package httpserver — служебный HTTP: liveness-проверка для оркестратора.
package httpserver

import "net/http"

// RegisterHealthz вешает /healthz на DefaultServeMux. Обработчики вебхука
// Telegram регистрируются там же, поэтому mux общий. ready — опциональная
// проверка зависимостей (например, ping базы).
func RegisterHealthz(ready func() error) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ready != nil {
			if err := ready(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ok\n" + err.Error()))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
}
