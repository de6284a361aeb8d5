package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/core"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/gorilla/mux"
)

// shutdownTimeout 优雅关闭时等待进行中请求的时间
const shutdownTimeout = 15 * time.Second

// ImageFetcher 单张图片抓取,crawlers.ImageFetcher实现了该接口
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL, referer string) (*models.FetchedImage, error)
}

// Server HTTP API服务
type Server struct {
	config  core.ServerConfig
	scraper core.PageScraper
	fetcher ImageFetcher
	monitor *crawlers.ResourceMonitor

	router *mux.Router
}

// NewServer 创建服务并注册路由
func NewServer(config core.ServerConfig, scraper core.PageScraper, fetcher ImageFetcher, monitor *crawlers.ResourceMonitor) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		config:  config,
		scraper: scraper,
		fetcher: fetcher,
		monitor: monitor,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware, accessLogMiddleware, corsMiddleware(s.config.CORSOrigin), bodyLimitMiddleware(s.config.MaxBodyBytes))

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/api/extract", s.handleExtract).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/extract", s.handleExtractQuery).Methods(http.MethodGet)
	s.router.HandleFunc("/api/fetch", s.handleFetch).Methods(http.MethodPost, http.MethodOptions)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// ServeHTTP 实现http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run 监听并服务,ctx结束时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("监听%s失败: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定的listener上服务
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		// 请求上下文不随ctx取消,关闭时由Shutdown等待进行中的请求
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Infof("🌐 HTTP服务已启动: %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	utils.Info("正在关闭HTTP服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return fmt.Errorf("关闭HTTP服务失败: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	utils.Info("HTTP服务已关闭")
	return nil
}
