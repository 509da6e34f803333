package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"

	"github.com/aaronli/rdt/internal/controlplane/config"
	"github.com/aaronli/rdt/internal/controlplane/handler"
	"github.com/aaronli/rdt/internal/controlplane/middleware"
	"github.com/aaronli/rdt/internal/controlplane/svc"
)

var configFile = flag.String("f", "configs/controlplane.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	server := rest.MustNewServer(c.RestConf, rest.WithCors())
	defer server.Stop()

	ctx, err := svc.NewServiceContext(c)
	if err != nil {
		panic(fmt.Sprintf("failed to build service context: %v", err))
	}
	defer ctx.Close()

	server.Use(middleware.RequestIDMiddleware)
	server.Use(middleware.LoggerMiddleware(ctx))
	if c.RateLimit.Enable {
		server.Use(middleware.RateLimitMiddleware(ctx.Auth, c.RateLimit.Rate, c.RateLimit.Burst))
	}

	handler.RegisterHandlers(server, ctx)

	ctx.Logger.Info(fmt.Sprintf("control plane starting at %s:%d", c.Host, c.Port))
	server.Start()
}
