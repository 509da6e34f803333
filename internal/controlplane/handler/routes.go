package handler

import (
	"github.com/zeromicro/go-zero/rest"

	"github.com/aaronli/rdt/internal/controlplane/middleware"
	"github.com/aaronli/rdt/internal/controlplane/svc"
)

// RegisterHandlers wires every control-plane route onto server.
func RegisterHandlers(server *rest.Server, ctx *svc.ServiceContext) {
	server.AddRoutes([]rest.Route{
		{Method: "GET", Path: "/health", Handler: HealthCheckHandler(ctx)},
		{Method: "GET", Path: "/ws/:id", Handler: WebSocketHandler(ctx)},
	})

	jwtAuth := middleware.JWTMiddleware(ctx.Auth)
	server.AddRoutes(
		[]rest.Route{
			{Method: "POST", Path: "/jobs", Handler: jwtAuth(SubmitJobHandler(ctx))},
			{Method: "GET", Path: "/jobs", Handler: jwtAuth(ListJobsHandler(ctx))},
			{Method: "GET", Path: "/jobs/:id", Handler: jwtAuth(GetJobHandler(ctx))},
		},
		rest.WithPrefix("/api/v1"),
	)
}
