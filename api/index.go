package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/server"
	"taskboard-backend/pkg/utils"
)

var (
	cachedApp *server.App
	appMutex  sync.Mutex
)

// getApp 冷启动时创建应用，温调用复用；创建失败时下次请求重试
func getApp(ctx context.Context) (*server.App, error) {
	appMutex.Lock()
	defer appMutex.Unlock()

	if cachedApp != nil {
		return cachedApp, nil
	}

	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	buildCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	app, err := server.Build(buildCtx, cfg, cfg.NewLogger())
	if err != nil {
		return nil, err
	}
	cachedApp = app
	return app, nil
}

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	app, err := getApp(r.Context())
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}
	app.Router.ServeHTTP(w, r)
}
