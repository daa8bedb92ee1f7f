// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"loanpay-service/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func SetupRoutes(
	paymentHandler *handler.PaymentHandler,
	loanHandler *handler.LoanHandler,
	callbackHandler *handler.CallbackHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Loan applications
		r.Route("/loans", func(r chi.Router) {
			r.Post("/applications", loanHandler.HandleLoanApplication)
			r.Get("/applications/{tracking_id}", loanHandler.HandleLoanLookup)
		})

		// Payments (consumed by the front end)
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentHandler.HandleInitiatePayment)
			r.Post("/retry", paymentHandler.HandleRetryPayment)
			r.Get("/{checkout_request_id}", paymentHandler.HandlePaymentStatus)
			r.Delete("/{checkout_request_id}", paymentHandler.HandleAbandonPayment)
		})

		// Callbacks (received from the payment provider)
		r.Route("/callbacks", func(r chi.Router) {
			r.Post("/mpesa/stk", callbackHandler.HandleMpesaSTKCallback)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
