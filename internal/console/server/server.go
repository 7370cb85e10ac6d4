package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/spaceai-safety-engine/internal/console/handler"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	safetyHandler *handler.SafetyHandler // /v1/actions, /v1/missions, /v1/emergency-stop
	ruleHandler   *handler.RuleHandler   // /v1/rules
	metrics       http.Handler           // /metrics
}

// NewConsoleServer собирает HTTP-поверхность управления движком.
// metrics может быть nil: тогда /metrics не регистрируется.
func NewConsoleServer(
	logger *zap.Logger,
	safetyH *handler.SafetyHandler,
	ruleH *handler.RuleHandler,
	metrics http.Handler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		safetyHandler: safetyH,
		ruleHandler:   ruleH,
		metrics:       metrics,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// Глобальные инфраструктурные Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	// Проверки (вызывают слой запросов и слой автономного исполнения)
	r.Post("/v1/actions/validate", s.safetyHandler.ValidateAction)
	r.Route("/v1/missions", func(r chi.Router) {
		r.Post("/validate", s.safetyHandler.ValidateMission)
		r.Post("/execution/validate", s.safetyHandler.ValidateMissionExecution)
	})

	// Аварийная остановка и состояние
	r.Post("/v1/emergency-stop", s.safetyHandler.EmergencyStop)
	r.Post("/v1/emergency-stop/deactivate", s.safetyHandler.DeactivateEmergencyStop)
	r.Get("/v1/status", s.safetyHandler.Status)

	// Каталог правил
	r.Route("/v1/rules", func(r chi.Router) {
		r.Get("/", s.ruleHandler.List)
		r.Post("/{id}/enable", s.ruleHandler.Enable)
		r.Post("/{id}/disable", s.ruleHandler.Disable)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
