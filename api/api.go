package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sureboda/sureboda"
	"github.com/sureboda/sureboda/api/middleware"
	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/internal/apierror"
)

type Api struct {
	sureboda *sureboda.Sureboda
	router   *gin.Engine
}

// Router registers the management routes. Gateway callback routes are
// registered in NewAPI before the auth middleware, so they stay reachable
// without the secret key.
func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/payments", a.InitiatePayment)
	router.GET("/payments/:id/status", a.GetPaymentStatus)

	router.POST("/payouts", a.InitiatePayout)
	router.GET("/payouts/:id/status", a.GetPayoutStatus)

	router.POST("/deliveries", a.CreateDelivery)
	router.GET("/deliveries/:id", a.GetDelivery)
	router.PUT("/deliveries/:id/status", a.UpdateDeliveryStatus)
	router.GET("/deliveries/:id/transactions", a.GetDeliveryTransactions)

	router.GET("/accounts/:owner_id", a.GetAccount)

	return a.router
}

func NewAPI(s *sureboda.Sureboda) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	a := &Api{sureboda: s, router: r}

	// Callback routes carry no secret key and must always be acknowledged.
	r.POST("/payments/callback", a.StkCallback)
	r.POST("/payouts/result", a.B2CResult)
	r.POST("/payouts/timeout", a.B2CTimeout)

	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	return a
}

// handleError writes an error response with the status its code maps to.
func handleError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}

// ackCallback acknowledges a gateway callback. The gateway retries callbacks
// that are not acknowledged with a 200, so this is the only response shape a
// callback route may produce.
func ackCallback(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
