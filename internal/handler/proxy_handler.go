package handler

import (
	"github.com/bppowerplay/portal/internal/cache"
	"github.com/gin-gonic/gin"
)

// ProxyHandler hands every content request to the cache controller's fetch
// interception policy. Mounted as the router's NoRoute fallback so the API
// surface keeps precedence.
type ProxyHandler struct {
	controller *cache.Controller
}

func NewProxyHandler(controller *cache.Controller) *ProxyHandler {
	return &ProxyHandler{controller: controller}
}

// Handle serves one intercepted request.
func (h *ProxyHandler) Handle(c *gin.Context) {
	h.controller.ServeHTTP(c.Writer, c.Request)
}
