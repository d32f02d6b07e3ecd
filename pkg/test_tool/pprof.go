package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"social_chat_sync/pkg/config"
	"social_chat_sync/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 在非 production 環境啟動 pprof 監控伺服器. addr empty disables it.
//
//	curl http://localhost:6060/debug/pprof/goroutine?debug=1
//
// goroutine dump 可確認每個 session 只有一個 dispatcher 在跑
func StartPprof(addr string) {
	if addr == "" {
		return
	}
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Error("pprof server failed", zap.Error(err))
		}
	}()
}
