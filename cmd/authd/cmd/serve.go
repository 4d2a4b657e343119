package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-auth-core"
)

var serverAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Seeds the declared roles and serves the auth endpoints under /api/auth.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		// seeding failure does not prevent startup
		_ = svc.seedRoles(cmd.Context())

		app := newHTTPApp(svc)

		addr := cfg.ServerAddr
		if serverAddr != "" {
			addr = serverAddr
		}

		serverErrors := make(chan error, 1)
		go func() {
			svc.logger.Info("Starting server", "addr", addr)
			serverErrors <- app.Listen(addr)
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			svc.logger.Info("Shutting down gracefully", "signal", sig.String())
			if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			svc.logger.Info("Server stopped")
			return nil
		}
	},
}

func newHTTPApp(svc *services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "authd",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				svc.logger.Error("Unhandled request error", "path", c.Path(), "error", err)
			}
			msg := utils.StatusMessage(code)
			if code >= fiber.StatusInternalServerError {
				msg = "Internal server error"
			}
			return c.Status(code).JSON(fiber.Map{"error": msg})
		},
	})

	gate := auth.NewRouteAuthenticator(svc.auther.TokenService(), svc.resolver, svc.cfg.GetAdminRole()).
		WithLogger(svc.logger)

	auth.RegisterAuthRoutes(app.Group("/api/auth"),
		auth.WithControllerLogger(svc.logger),
		auth.WithAuthenticator(svc.auther),
		auth.WithRoleAdministrator(svc.roles),
		auth.WithRoleRegistry(svc.registry),
		auth.WithRouteAuthenticator(gate),
	)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := svc.db.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}

func init() {
	serveCmd.Flags().StringVar(&serverAddr, "addr", "", "Server bind address (env: SERVER_ADDR)")
}
