package main

import (
	"eventadmission/src/controllers"

	"github.com/gin-gonic/gin"
)

func registrationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/registrations", data(controllers.Register)).
		GET("/registrations", list(controllers.ListOwnRegistrations)).
		GET("/registrations/:id", data(controllers.GetRegistration)).
		POST("/registrations/:id/cancel", data(controllers.CancelRegistration))
	return g
}

func volunteerHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/volunteer-roles/:id/apply", data(controllers.ApplyVolunteer)).
		POST("/volunteer-registrations/:id/cancel", data(controllers.CancelApplication))
	return g
}

func accountHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	me := g.Group("/me")
	me.GET("/notifications", list(controllers.ListNotifications))
	return me
}
