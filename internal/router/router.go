package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/plantcare/api/handler"
)

type Handlers struct {
	Plant    *apiHandler.PlantHandler
	Schedule *apiHandler.ScheduleHandler
	Health   *apiHandler.HealthHandler
}

// New registers the API routes. uploadsDir is served read-only under /uploads.
func New(handlers Handlers, uploadsDir string) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.GET("/api/plants", handlers.Plant.ListPlants)
	r.POST("/api/plants", handlers.Plant.CreatePlant)
	r.GET("/api/plants/{id}", handlers.Plant.GetPlant)
	r.PUT("/api/plants/{id}", handlers.Plant.UpdatePlant)
	r.DELETE("/api/plants/{id}", handlers.Plant.DeletePlant)
	r.POST("/api/plants/{id}/water", handlers.Plant.Water)
	r.POST("/api/plants/{id}/fertilize", handlers.Plant.Fertilize)
	r.POST("/api/plants/{id}/images", handlers.Plant.UploadImage)
	r.GET("/api/plants/{id}/history", handlers.Plant.History)

	r.GET("/api/schedule", handlers.Schedule.GetSchedule)

	if uploadsDir != "" {
		r.ServeFiles("/uploads/{filepath:*}", uploadsDir)
	}

	return r
}

// Handler wraps the router with the given middleware, outermost first.
func Handler(r *router.Router, middleware ...func(fasthttp.RequestHandler) fasthttp.RequestHandler) fasthttp.RequestHandler {
	h := r.Handler
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
