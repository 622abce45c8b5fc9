package main

import (
	"eventadmission/src/controllers"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func webhookRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		POST("/webhook/stripe", func(ctx *gin.Context) {
			status, err := controllers.StripeWebhook(ctx)
			if err != nil {
				log.Printf("[StripeWebhook] %s\n", err.Error())
				ctx.Status(status)
				return
			}
			ctx.Status(http.StatusOK)
		}).
		POST("/webhook/payments", func(ctx *gin.Context) {
			result, status, err := controllers.PaymentCallback(ctx)
			if err != nil {
				controllers.Fail(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result.Order, "replayed": result.Replayed})
		})
	return apiv1
}
