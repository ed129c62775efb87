package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"

	"github.com/userbase-net/userbase/internal/alert"
	"github.com/userbase-net/userbase/internal/boot"
	"github.com/userbase-net/userbase/internal/handlers"
	"github.com/userbase-net/userbase/internal/ledger"
	"github.com/userbase-net/userbase/internal/service/challenge"
	"github.com/userbase-net/userbase/internal/service/merge"
	"github.com/userbase-net/userbase/internal/service/overlay"
	"github.com/userbase-net/userbase/internal/service/reconcile"
	"github.com/userbase-net/userbase/internal/service/session"
	"github.com/userbase-net/userbase/internal/store"
)

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	db, err := store.Open(config.Database.Path)
	if err != nil {
		log.Fatalf("opening store: %+v", err)
	}
	defer db.Close()

	var signer ledger.OperationSigner
	if config.Hive.BroadcastWIF != "" {
		wifSigner, err := ledger.NewWIFSigner(config.Hive.BroadcastWIF)
		if err != nil {
			log.Fatalf("decoding HIVE_BROADCAST_WIF: %+v", err)
		}
		signer = wifSigner
	} else if config.Hive.BroadcastAccount != "" {
		log.Warnf("broadcast account %q configured without HIVE_BROADCAST_WIF; reconciliation will record failures", config.Hive.BroadcastAccount)
	}
	hive := ledger.NewHiveClient(config.Hive.RPCURL, signer)

	alerts := alert.NewWebhook(config.AlertWebhookURL)
	sessions := session.New(db, config.Auth.JWTSecret, time.Duration(config.Auth.AccessTTLMinutes)*time.Minute)
	challenges := challenge.New(db, hive, challenge.ES256Verifier{})
	merges := merge.New(db)
	overlays := overlay.New(db)
	worker := reconcile.NewWorker(db, hive, alerts, config.Hive.BroadcastAccount)

	server := echo.New()
	server.HideBanner = true
	server.HTTPErrorHandler = handlers.HTTPErrorHandler
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("userbase"))
	server.Use(middleware.Recover())

	if config.IsDevelopment() {
		server.Logger.SetLevel(log.DEBUG)
	} else {
		server.Logger.SetLevel(log.INFO)
	}
	if config.IsProduction() && config.Server.Origins == "*" {
		log.Warnf("ALLOWED_ORIGINS left at * in production")
	}

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{config.Server.Origins},
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	server.GET("/health", handlers.Health(db))

	authed := server.Group("", handlers.RequireSession(sessions))
	authed.POST("/identities/hive/challenge", handlers.CreateHiveChallenge(challenges))
	authed.POST("/identities/verify", handlers.VerifyIdentity(challenges))
	authed.GET("/identities", handlers.ListIdentities(db))
	authed.DELETE("/identities/:id", handlers.UnlinkIdentity(db))
	authed.POST("/merge/preview", handlers.MergePreview(merges))
	authed.POST("/soft-votes", handlers.SoftVotes(overlays))
	authed.POST("/soft-votes/cast", handlers.CastSoftVote(overlays))

	server.GET("/session", handlers.GetSession(sessions))
	server.POST("/session/signout", handlers.SignOut(sessions))
	server.POST("/session/issue",
		handlers.IssueSession(sessions, time.Duration(config.Auth.SessionTTLHours)*time.Hour),
		handlers.RequireInternalToken(config.Auth.InternalToken))
	server.POST("/soft-posts", handlers.SoftPosts(overlays))
	server.POST("/soft-votes/retry",
		handlers.RetrySoftVotes(worker),
		handlers.RequireInternalToken(config.Auth.InternalToken))

	go func() {
		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
