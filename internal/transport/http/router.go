package httptransport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig collects the middlewares the router composes. The
// launch-payload gate covers the end-user API; the cron trigger and the
// bot webhook deliberately sit behind their own, simpler secrets.
type RouterConfig struct {
	Gate    TelegramAuthMiddleware
	Cron    BearerAuthMiddleware
	Imaging BearerAuthMiddleware
	Webhook WebhookSecretMiddleware
}

func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/user/me", h.Me)
	api.HandleFunc("POST /api/workouts", h.CreateWorkout)
	api.HandleFunc("GET /api/workouts", h.ListWorkouts)
	api.HandleFunc("GET /api/workouts/{id}", h.GetWorkout)
	api.HandleFunc("PATCH /api/workouts/{id}", h.FinishWorkout)
	api.HandleFunc("POST /api/workouts/{id}/sets", h.AddSet)
	api.HandleFunc("GET /api/stats", h.Stats)
	api.HandleFunc("GET /api/reminders", h.GetReminder)
	api.HandleFunc("PUT /api/reminders", h.PutReminder)
	api.HandleFunc("POST /api/workouts/{id}/photos", h.UploadPhoto)
	api.HandleFunc("GET /api/photos", h.ListPhotos)
	api.HandleFunc("POST /api/photos/process", h.ProcessPhoto)

	mux := http.NewServeMux()
	mux.Handle("/api/", cfg.Gate.Wrap(api))
	mux.Handle("POST /api/bot/reminders", cfg.Cron.Wrap(http.HandlerFunc(h.RunReminders)))
	mux.Handle("POST /api/photos/result", cfg.Imaging.Wrap(http.HandlerFunc(h.PhotoResult)))
	mux.Handle("POST /api/telegram/webhook", cfg.Webhook.Wrap(http.HandlerFunc(h.TelegramWebhook)))
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return MetricsMiddleware{Mux: mux}.Wrap(mux)
}
