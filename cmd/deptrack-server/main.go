package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	deptrackrpc "deptrack/pkg/api/deptrackrpc/v1"
	"deptrack/pkg/aggregate"
	"deptrack/pkg/app"
	"deptrack/pkg/config"
	"deptrack/pkg/meta"
	"deptrack/pkg/server"
	"deptrack/pkg/service"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is $HOME/.deptrack/config.yaml)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	// 2. Ledger (可选)
	var ledger service.RunLedger
	db, err := app.OpenLedger(context.Background())
	if err != nil {
		log.Fatalf("❌ Failed to open ledger: %v", err)
	}
	if db != nil {
		defer db.Close()
		ledger = meta.NewRepository(db)
		fmt.Printf("✅ Ledger enabled (%s).\n", viper.GetString("ledger.type"))
	}

	// 3. Setup Network
	addr := viper.GetString("server.listen")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("❌ Failed to listen on %s: %v", addr, err)
	}

	// 4. Setup gRPC Server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			server.UnaryRecoveryInterceptor,
			server.UnaryLoggingInterceptor,
		),
	)

	registry := aggregate.NewRegistry(nil)
	deptrackrpc.RegisterAggregationServiceServer(grpcServer, service.NewAggregationService(registry, ledger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(deptrackrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// 5. Start Server (Async)
	go func() {
		fmt.Printf("🚀 deptrack coordinator listening on %s...\n", addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("❌ Failed to serve: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n⚠️  Shutting down server...")
	healthSrv.Shutdown()
	if n := registry.Active(); n > 0 {
		fmt.Printf("⚠️  %d unfinished runs discarded.\n", n)
	}
	grpcServer.GracefulStop()
	fmt.Println("👋 Server stopped.")
}
