package main

import (
	"eventadmission/src/controllers"

	"github.com/gin-gonic/gin"
)

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/events/:id", data(controllers.GetEvent)).
		GET("/events/:id/ticket-types", list(controllers.ListTicketTypes))
	return g
}
