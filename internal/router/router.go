package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insideout-platform/notify-service/internal/handler"
	notificationhandler "github.com/insideout-platform/notify-service/internal/handler/notification"
)

type Router struct {
	engine        *gin.Engine
	notificationH *notificationhandler.Handler
	healthH       *handler.HealthHandler
}

func NewRouter(notificationH *notificationhandler.Handler, healthH *handler.HealthHandler) *Router {
	return &Router{
		engine:        gin.New(),
		notificationH: notificationH,
		healthH:       healthH,
	}
}

func (r *Router) Setup() *gin.Engine {
	r.engine.Use(gin.Recovery())

	r.engine.GET("/health", r.healthH.Health)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.engine.Group("/api/v1")
	r.notificationH.RegisterRoutes(v1)

	return r.engine
}
