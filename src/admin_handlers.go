package main

import (
	"eventadmission/src/controllers"
	"eventadmission/src/middlewares"
	"net/http"

	"github.com/gin-gonic/gin"
)

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	admin := g.Group("/admin")
	admin.Use(middlewares.RequireAdmin)
	admin.
		POST("/events", data(controllers.CreateEvent)).
		POST("/events/:id/ticket-types", data(controllers.CreateTicketType)).
		PATCH("/events/:id/registration", data(controllers.UpdateRegistrationWindow)).
		PUT("/events/:id/capacity", data(controllers.AdjustCapacity)).
		POST("/events/:id/cancel", data(controllers.CancelEvent)).
		GET("/events/:id/registrations", list(controllers.ListEventRegistrations)).
		POST("/events/:id/volunteer-roles", data(controllers.CreateVolunteerRole)).
		POST("/ticket-types/:id/tiers", data(controllers.AddPriceTier)).
		PATCH("/ticket-types/:id", data(controllers.UpdateTicketType)).
		POST("/registrations/:id/review", data(controllers.ReviewRegistration)).
		GET("/volunteer-roles/:id/registrations", list(controllers.ListVolunteerRegistrations)).
		POST("/volunteer-registrations/:id/review", data(controllers.ReviewApplication)).
		POST("/volunteer-registrations/:id/check-in", data(controllers.CheckInVolunteer)).
		POST("/volunteer-registrations/:id/complete", data(controllers.CompleteVolunteer)).
		POST("/volunteer-registrations/:id/award", data(controllers.AwardVolunteerCP)).
		POST("/orders/:id/refund", data(controllers.RefundOrder)).
		POST("/orders/sweep", func(ctx *gin.Context) {
			n, status, err := controllers.SweepExpiredOrders(ctx)
			if err != nil {
				controllers.Fail(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"expired": n})
		})
	return admin
}
