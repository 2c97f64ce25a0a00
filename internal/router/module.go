package router

import "github.com/gin-gonic/gin"

// Module registers one feature's routes under /api. A module needing the bare engine
// (health, metrics) keeps its own reference to it.
type Module interface {
	Register(rg *gin.RouterGroup)
}
