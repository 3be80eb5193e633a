package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meshforge/meshkit/errors"
	"github.com/meshforge/meshkit/gateway/middleware"
	"github.com/meshforge/meshkit/mesh"
	"github.com/meshforge/meshkit/registry"
	"github.com/meshforge/meshkit/validation"
	"github.com/meshforge/meshkit/version"
)

func (g *Gateway) registerRoutes() {
	g.engine.GET("/health", g.handleHealth)
	g.engine.GET("/services", g.handleListServices)
	g.engine.GET("/services/:name", g.handleGetService)

	g.engine.POST("/register", g.handleRegister)
	g.engine.DELETE("/register/:id", g.handleDeregister)
	g.engine.PUT("/register/:id/health", g.handleUpdateHealth)

	g.engine.Any("/api/:service/*path", g.handleProxy)
}

// handleHealth reports gateway liveness and registry size.
func (g *Gateway) handleHealth(c *gin.Context) {
	services := g.registry.ListAll()
	instances := 0
	for _, list := range services {
		instances += len(list)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":               "healthy",
		"service":              "api_gateway",
		"version":              version.GetShortVersion(),
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"services_registered":  len(services),
		"instances_registered": instances,
	})
}

// handleListServices returns every registered service and its instances.
func (g *Gateway) handleListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": g.registry.ListAll()})
}

// handleGetService returns the instances of one service.
func (g *Gateway) handleGetService(c *gin.Context) {
	name := c.Param("name")
	instances := g.registry.Discover(name)
	if len(instances) == 0 {
		g.abortWithError(c, errors.NotFound("service", name))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service":   name,
		"instances": instances,
	})
}

// handleRegister registers a service instance.
func (g *Gateway) handleRegister(c *gin.Context) {
	var inst registry.Instance
	if err := c.ShouldBindJSON(&inst); err != nil {
		g.abortWithError(c, errors.InvalidInput(err.Error()))
		return
	}
	if err := validation.Validate(inst); err != nil {
		g.abortWithAny(c, err)
		return
	}

	g.registry.Register(inst)
	c.JSON(http.StatusCreated, gin.H{
		"service_id":   inst.ID,
		"service_name": inst.Name,
		"status":       "registered",
	})
}

// handleDeregister removes a service instance.
func (g *Gateway) handleDeregister(c *gin.Context) {
	id := c.Param("id")
	if err := g.registry.Deregister(id); err != nil {
		g.abortWithError(c, errors.NotFound("instance", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service_id": id,
		"status":     "deregistered",
	})
}

// handleUpdateHealth updates an instance's health status.
func (g *Gateway) handleUpdateHealth(c *gin.Context) {
	var body struct {
		Status string `json:"status" validate:"required,oneof=starting healthy degraded unhealthy stopped"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		g.abortWithError(c, errors.InvalidInput(err.Error()))
		return
	}
	if err := validation.Validate(body); err != nil {
		g.abortWithAny(c, err)
		return
	}

	id := c.Param("id")
	if err := g.registry.UpdateHealth(id, registry.Status(body.Status)); err != nil {
		g.abortWithError(c, errors.NotFound("instance", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service_id": id,
		"status":     body.Status,
	})
}

// handleProxy forwards /api/:service/*path into the mesh and relays the
// downstream response, or the mesh failure, to the caller.
func (g *Gateway) handleProxy(c *gin.Context) {
	service := c.Param("service")
	path := c.Param("path")
	if q := c.Request.URL.RawQuery; q != "" {
		path = path + "?" + q
	}

	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			g.abortWithError(c, errors.InvalidInput("reading request body: "+err.Error()))
			return
		}
	}

	req := mesh.NewRequest(service, c.Request.Method, path)
	req.ID = middleware.GetRequestID(c)
	req.Body = body
	for k := range c.Request.Header {
		req.Headers[k] = c.Request.Header.Get(k)
	}
	req.Headers["X-Request-Id"] = req.ID

	resp, err := g.mesh.Call(c.Request.Context(), req)
	if err != nil {
		g.abortWithAny(c, err)
		return
	}

	contentType := resp.Headers["Content-Type"]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// abortWithError writes the gateway error envelope for an AppError.
func (g *Gateway) abortWithError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToGatewayError(middleware.GetRequestID(c)))
}

// abortWithAny writes the envelope for any error, mapping unknown errors to 500.
func (g *Gateway) abortWithAny(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		g.abortWithError(c, appErr)
		return
	}
	g.abortWithError(c, errors.Internal(err))
}
