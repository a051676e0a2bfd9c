package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-signup/app/controller"
	signupgrpc "github.com/vibast-solutions/ms-go-signup/app/grpc"
	"github.com/vibast-solutions/ms-go-signup/app/mail"
	"github.com/vibast-solutions/ms-go-signup/app/middleware"
	"github.com/vibast-solutions/ms-go-signup/app/repository"
	"github.com/vibast-solutions/ms-go-signup/app/security"
	"github.com/vibast-solutions/ms-go-signup/app/service"
	"github.com/vibast-solutions/ms-go-signup/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start both HTTP (Echo) and gRPC servers for the sign-up service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type services struct {
	signUp       service.SignUpService
	userAdmin    service.UserAdminService
	internalAuth service.InternalAuthService
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	svcs, err := newServices(db, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grpcServer := newGRPCServer(cfg, svcs)
	go startGRPCServer(cfg, grpcServer)

	e := newHTTPServer(cfg, svcs)
	go startHTTPServer(cfg, e)

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
}

func newServices(db *sql.DB, cfg *config.Config) (*services, error) {
	encryptor, err := security.NewEncryptor(cfg.Encryption.Secret, cfg.Encryption.Salt)
	if err != nil {
		return nil, err
	}
	codec := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	notifier := mail.NewNotifier(mail.NewSender(cfg.Mail), cfg.Mail.From, cfg.App.BaseURL)

	userRepo := repository.NewUserRepository(db)
	internalAPIKeyRepo := repository.NewInternalAPIKeyRepository(db)

	return &services{
		signUp:       service.NewSignUpService(db, userRepo, codec, encryptor, notifier, cfg),
		userAdmin:    service.NewUserAdminService(userRepo),
		internalAuth: service.NewInternalAuthService(internalAPIKeyRepo),
	}, nil
}

func newHTTPServer(cfg *config.Config, svcs *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURIPath:   true,
		LogHost:      true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URIPath,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	signUpController := controller.NewSignUpController(svcs.signUp, cfg.App.ProfileURL)
	userAdminController := controller.NewUserAdminController(svcs.userAdmin)
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(svcs.internalAuth)

	e.GET("/health", controller.Health)
	e.POST("/sign-up/verify", signUpController.Verify)
	// links in verification emails are opened with GET
	e.GET("/sign-up/verify", signUpController.ConfirmVerify)

	users := e.Group("/api/v1/users")
	users.POST("", signUpController.Register)

	admin := users.Group("", apiKeyMiddleware.RequireAccess(service.AccessUsersAdmin))
	admin.GET("", userAdminController.List)
	admin.GET("/:publicId", userAdminController.Get)
	admin.PUT("/:publicId/enable", userAdminController.Enable)
	admin.PUT("/:publicId/disable", userAdminController.Disable)
	admin.DELETE("/:publicId", userAdminController.Delete)

	return e
}

func startHTTPServer(cfg *config.Config, e *echo.Echo) {
	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func newGRPCServer(cfg *config.Config, svcs *services) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(signupgrpc.APIKeyUnaryInterceptor(svcs.internalAuth, service.AccessSignUp)),
	)
	signupgrpc.RegisterSignUpServiceServer(grpcServer, signupgrpc.NewSignUpServer(svcs.signUp, cfg.App.ProfileURL))
	return grpcServer
}

func startGRPCServer(cfg *config.Config, grpcServer *grpc.Server) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logrus.WithError(err).Fatal("Failed to start gRPC server")
	}
}
