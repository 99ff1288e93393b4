package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		addr     string
		products int
		orders   int
		seed     uint64
		failRate float64
	)
	flag.StringVar(&addr, "addr", ":8090", "Listen address")
	flag.IntVar(&products, "products", 40, "Number of catalog products")
	flag.IntVar(&orders, "orders", 25, "Number of source orders")
	flag.Uint64Var(&seed, "seed", 1, "Catalog seed; the same seed serves the same feed")
	flag.Float64Var(&failRate, "fail-rate", 0, "Probability of answering 503")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	gin.SetMode(gin.ReleaseMode)
	cat := GenerateCatalog(seed, products, orders)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewServer(cat, ServerOptions{FailRate: failRate}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("Mock feed listening",
		zap.String("addr", addr),
		zap.Int("products", len(cat.Products)),
		zap.Int("orders", len(cat.Orders)),
		zap.Float64("fail_rate", failRate),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Mock feed stopped", zap.Error(err))
	}
}
