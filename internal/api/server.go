package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/audit"
	"github.com/twinkletaps/twinkletaps-core/internal/credential"
	"github.com/twinkletaps/twinkletaps-core/internal/device"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/config"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/logging"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/mqtt"
	"github.com/twinkletaps/twinkletaps-core/internal/invitation"
	"github.com/twinkletaps/twinkletaps-core/internal/membership"
	"github.com/twinkletaps/twinkletaps-core/internal/workspace"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	Security     config.SecurityConfig
	InviteConfig config.InvitationConfig
	Logger       *logging.Logger // defaults to a logger that drops everything
	DB           *database.DB
	Workspaces   *workspace.Service
	Devices      *device.Service
	Invitations  *invitation.Service
	Members      *membership.Store // defaults to a store on DB
	Audit        *audit.Repository // defaults to a repository on DB
	Pool         *credential.Pool  // optional: reports pool depth on /health
	MQTT         *mqtt.Client      // optional: reports broker state on /health
	Version      string
}

// Server is the HTTP API server for TwinkleTaps Core.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	secCfg      config.SecurityConfig
	inviteCfg   config.InvitationConfig
	logger      *logging.Logger
	db          *database.DB
	workspaces  *workspace.Service
	devices     *device.Service
	invitations *invitation.Service
	members     *membership.Store
	auditRepo   *audit.Repository
	pool        *credential.Pool
	mqtt        *mqtt.Client
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Workspaces == nil || deps.Devices == nil || deps.Invitations == nil {
		return nil, fmt.Errorf("workspace, device and invitation services are required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	s := &Server{
		cfg:         deps.Config,
		secCfg:      deps.Security,
		inviteCfg:   deps.InviteConfig,
		logger:      deps.Logger,
		db:          deps.DB,
		workspaces:  deps.Workspaces,
		devices:     deps.Devices,
		invitations: deps.Invitations,
		members:     deps.Members,
		auditRepo:   deps.Audit,
		pool:        deps.Pool,
		mqtt:        deps.MQTT,
		version:     deps.Version,
	}
	if s.members == nil {
		s.members = membership.NewStore(deps.DB)
	}
	if s.auditRepo == nil {
		s.auditRepo = audit.NewRepository(deps.DB)
	}

	return s, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
