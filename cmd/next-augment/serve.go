package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashwinyue/next-augment/internal/database"
	"github.com/ashwinyue/next-augment/internal/handler"
	"github.com/ashwinyue/next-augment/internal/repository"
	"github.com/ashwinyue/next-augment/internal/router"
	"github.com/ashwinyue/next-augment/internal/service/file"
	"github.com/ashwinyue/next-augment/internal/service/job"
	"github.com/gin-gonic/gin"
)

// serveCommand 启动 Web UI 与任务 API
func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := configFlag(fs)
	addr := fs.String("addr", "", "listen address, overrides server.host/port")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()

	// 任务历史：启用数据库时落库，否则只保存在内存中
	repos := repository.NewMemoryRepositories()
	if cfg.Database.Enabled {
		db, err := database.New(ctx, &cfg.Database, cfg.App.Debug)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Printf("Database connected: %s", cfg.Database.DBName)
		repos = repository.NewRepositories(db.DB)
	}

	var opts []job.Option
	publisher, err := file.NewPublisher(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if publisher != nil {
		log.Printf("Artifacts will be published to %s storage", cfg.Storage.Type)
		opts = append(opts, job.WithPublisher(publisher))
	}

	jobs, err := job.NewService(cfg, repos.Job, opts...)
	if err != nil {
		return err
	}
	r := router.SetupRouter(handler.NewHandlers(cfg, jobs, nil))

	srv := &http.Server{
		Addr:        cfg.Server.GetAddr(),
		Handler:     r,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// SSE 连接可能持续整个任务，默认不设写超时
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	if *addr != "" {
		srv.Addr = *addr
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Println("Server exited")
	return nil
}
