package main

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"Storefront/internal/sandbox"
	"Storefront/pkg/kit"
)

func main() {
	service := "sandbox"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8090")

	secret := os.Getenv("SANDBOX_TOKEN_SECRET")
	if len(secret) < 32 {
		log.Fatal("SANDBOX_TOKEN_SECRET is required and must be at least 32 chars")
	}

	creds, err := sandbox.NewCredentials(
		getenv("SANDBOX_USERNAME", "merchant"),
		getenv("SANDBOX_PASSWORD", "sandbox"),
		bcrypt.DefaultCost,
	)
	if err != nil {
		log.Fatal("init credentials failed", zap.Error(err))
	}

	s := sandbox.NewServer(creds, sandbox.NewTokenMaker(secret), log)
	if v := os.Getenv("SANDBOX_REDIRECT_BASE"); v != "" {
		s.RedirectBase = v
	}

	if err := kit.RunHTTPServer(context.Background(), ":"+port, s.Routes(), log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
