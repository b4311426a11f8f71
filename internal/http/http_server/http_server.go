package http_server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"github.com/Chebah-Amine/bid-marketplace/internal/http/authhandler"
	"github.com/Chebah-Amine/bid-marketplace/internal/http/authmw"
	"github.com/Chebah-Amine/bid-marketplace/internal/http/markethandler"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/account"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/market"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

type httpServer struct {
	listenPort     uint16
	srv            http.Server
	ln             net.Listener
	marketService  market.IMarketService
	accountService account.IAccountService
	sessions       *session.Store
	sessionTTL     time.Duration
	ctx            context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, marketService market.IMarketService,
	accountService account.IAccountService, sessions *session.Store, sessionTTL time.Duration) *httpServer {
	return &httpServer{
		listenPort:     listenPort,
		marketService:  marketService,
		accountService: accountService,
		sessions:       sessions,
		sessionTTL:     sessionTTL,
		ctx:            ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Every request resolves its session cookie before reaching a handler.
	routerEngine.Use(authmw.Resolve(h.sessions))

	authhandler.New(h.accountService, h.sessions, h.sessionTTL).Register(routerEngine)
	markethandler.New(h.marketService, h.sessions).Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}
