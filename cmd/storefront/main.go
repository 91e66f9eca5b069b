package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/internal/order"
	"Storefront/internal/payments"
	"Storefront/pkg/kit"
)

type config struct {
	Port            string
	FrontendURL     string
	Provider        payments.Config
	ReconcileTO     time.Duration
	PurchaseCountry string
	Locale          string
	ProductURL      string
	MetricsToken    string
	NodeID          int64
	CreateLimit     int
}

func loadConfig() (config, error) {
	nodeID, err := strconv.ParseInt(getenv("NODE_ID", "1"), 10, 64)
	if err != nil {
		return config{}, err
	}
	limit, err := strconv.Atoi(getenv("CREATE_LIMIT_PER_MIN", "30"))
	if err != nil {
		return config{}, err
	}

	return config{
		Port:        getenv("PORT", "3001"),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),
		Provider: payments.Config{
			BaseURL:  getenv("PROVIDER_API_URL", "http://localhost:8090"),
			Username: os.Getenv("PROVIDER_USERNAME"),
			Password: os.Getenv("PROVIDER_PASSWORD"),
			Timeout:  getenvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		ReconcileTO:     getenvDuration("RECONCILE_TIMEOUT", 3*time.Second),
		PurchaseCountry: getenv("PURCHASE_COUNTRY", order.DefaultPurchaseCountry),
		Locale:          getenv("LOCALE", order.DefaultLocale),
		ProductURL:      getenv("PRODUCT_URL", order.DefaultProductURL),
		MetricsToken:    os.Getenv("METRICS_TOKEN"),
		NodeID:          nodeID,
		CreateLimit:     limit,
	}, nil
}

func main() {
	service := "storefront"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	if !cfg.Provider.Configured() {
		log.Warn("PROVIDER_USERNAME/PROVIDER_PASSWORD not set, provider calls will be rejected")
	}

	node, err := order.NewNode(cfg.NodeID)
	if err != nil {
		log.Fatal("init merchant references failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()

	client := payments.NewClient(cfg.Provider)
	client.Metrics = payments.NewMetrics(reg)
	client.Log = log

	orderMetrics := order.NewMetrics(reg)
	store := order.NewStore()
	products := catalog.NewStore()

	s := &order.Server{
		Catalog: products,
		Builder: order.NewBuilder(order.BuilderConfig{
			PurchaseCountry: cfg.PurchaseCountry,
			Locale:          cfg.Locale,
			ProductURL:      cfg.ProductURL,
		}, node),
		Provider:           client,
		Store:              store,
		Reconciler:         order.NewReconciler(store, client, order.ReconcilerConfig{Timeout: cfg.ReconcileTO}, log, orderMetrics),
		Log:                log,
		Metrics:            orderMetrics,
		ProviderConfigured: cfg.Provider.Configured(),
	}

	h := order.NewHandler(s, &catalog.Server{Store: products, Log: log}, order.HTTPDeps{
		Log:               log,
		Service:           service,
		Registry:          reg,
		MetricsEnabled:    true,
		MetricsToken:      cfg.MetricsToken,
		AllowedOrigins:    splitOrigins(cfg.FrontendURL),
		CreateLimitPerMin: cfg.CreateLimit,
	})

	log.Info("storefront configured",
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("purchase_country", cfg.PurchaseCountry),
		zap.Int64("node_id", cfg.NodeID),
	)

	if err := kit.RunHTTPServer(context.Background(), ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func splitOrigins(v string) []string {
	var out []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
