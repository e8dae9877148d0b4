package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscan/internal/api"
	"github.com/wonny/stockscan/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 단일 종목 백테스트 및 유니버스 스캔 엔드포인트 제공
- 웹소켓으로 스캔 진행률 스트리밍

Endpoints:
  GET  /health                   - Health check
  POST /api/backtest             - 단일 종목 백테스트
  POST /api/scan                 - 유니버스 스캔
  GET  /api/scan/ws              - 스캔 (진행률 스트리밍)
  GET  /api/scans/latest         - 최근 스캔 결과 조회
  GET  /api/presets              - 저장된 스크린 목록
  POST /api/presets/{name}/scan  - 저장된 스크린 실행

Example:
  go run ./cmd/stockscan api
  go run ./cmd/stockscan api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort        string
	apiUniverseCSV string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT env)")
	apiCmd.Flags().StringVar(&apiUniverseCSV, "universe", "", "종목 목록 CSV (기본: 시가총액 랭킹)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stockscan API Server ===")

	rt, err := initRuntime(apiUniverseCSV)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Override port if flag is set
	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	log := rt.log
	log.WithFields(map[string]interface{}{
		"port": rt.cfg.Port,
		"env":  rt.cfg.Env,
	}).Info("Initializing API server")

	scanHandler := handlers.NewScanHandler(rt.engine, rt.scanner, rt.universe, rt.repo, rt.cfg, log)
	router := api.NewRouter(scanHandler, log)
	server := api.New(rt.cfg, log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", rt.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/backtest")
	fmt.Println("  POST /api/scan")
	fmt.Println("  GET  /api/scan/ws")
	fmt.Println("  GET  /api/scans/latest")
	fmt.Println("  GET  /api/presets")
	fmt.Println("  POST /api/presets/{name}/scan")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
