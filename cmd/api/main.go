// Package main (in api-subfolder) wires config, storage, the remote face-swap client and the HTTP server
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/kafka"
	"github.com/UnendingLoop/FaceSwap/internal/mwlogger"
	"github.com/UnendingLoop/FaceSwap/internal/remote"
	"github.com/UnendingLoop/FaceSwap/internal/remote/faceswap"
	"github.com/UnendingLoop/FaceSwap/internal/service"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
	"github.com/UnendingLoop/FaceSwap/internal/storage"
	"github.com/UnendingLoop/FaceSwap/internal/storage/filestorage"
	"github.com/UnendingLoop/FaceSwap/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Printf("No .env file loaded (%v), using process environment", err)
	}
	cfg, err := settings.Load(appConfig)
	if err != nil {
		log.Fatalf("Invalid configuration: %v\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к хранилищу
	strg, err := storage.NewImgStorage(cfg.Storage, filename.NewNamer(), 5*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init storage")
	}

	// события по задачам, если задан брокер
	pub, err := kafka.NewPublisher(ctx, cfg.Kafka, 5*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init event publisher")
	}

	// создаем экземпляр сервиса
	var svc SwapAPIService = service.NewSwapService(cfg, faceswap.NewClient(cfg.Remote), remote.NewHTTPProber(cfg.Remote.ProbeTimeout), strg, pub)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewSwapHandler(svc, cfg.Storage.MaxUploadBytes)
	// сетапим сервер
	engine := ginext.New(cfg.GinMode)
	engine.Use(transport.Recovery())
	engine.NoRoute(handlers.NotFound)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/swap", handlers.Submit)                        // отправить и сразу вернуть request_id
	engine.POST("/swap/sync", handlers.SubmitSync)               // отправить и дождаться результата
	engine.GET("/status/:request_id", handlers.Status)           // опрос статуса
	engine.GET(service.DownloadRoute+"*path", handlers.Download) // скачать результат
	if fs, ok := strg.(*filestorage.FileImageStorage); ok {
		// удаленный API забирает загруженные картинки отсюда
		engine.Static(filestorage.FilesRoute, fs.Root())
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Str("addr", srv.Addr).Msg("Server running")
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия сервера и кафки
	<-ctx.Done()

	shutdown(srv, pub)
	zlog.Logger.Info().Msg("Exiting app...")
}

func shutdown(srv *http.Server, pub kafka.Publisher) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown HTTP-server correctly")
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-producer")
		return
	}
	zlog.Logger.Info().Msg("Kafka-producer connection closed.")
}
