package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/docqueue/internal/api"
	apiMiddleware "github.com/phrazzld/docqueue/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{apiMiddleware.TraceHeader},
		MaxAge:         300,
	}))

	documents := api.NewDocumentHandler(app.documents, app.config.Server.MaxUploadBytes, app.logger)
	system := api.NewSystemHandler(app.documents, app.pool, app.kv, app.serviceInfo(), app.logger)

	r.Get("/", system.Root)
	r.Get("/health", system.Health)
	r.Get("/workers", system.Workers)
	r.Get("/queue", system.Queue)
	r.Post("/queue/clear", system.ClearQueue)

	r.Post("/upload", documents.Upload)
	r.Get("/status/{task_id}", documents.GetStatus)
	r.Get("/result/{task_id}", documents.GetResult)
	r.Get("/tasks", documents.ListTasks)
	r.Delete("/task/{task_id}", documents.DeleteTask)

	return r
}
