package main

import (
	"bytes"
	"eventadmission/src/controllers"
	"eventadmission/src/lib"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func orderHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/orders", data(controllers.CreateOrder)).
		GET("/orders", list(controllers.ListOrders)).
		GET("/orders/:id", data(controllers.GetOrder)).
		POST("/orders/:id/pay", data(controllers.PayOrder)).
		POST("/orders/:id/cancel", data(controllers.CancelOrder)).
		POST("/orders/:id/refund", data(controllers.RefundOrder)).
		POST("/orders/:id/invites", data(controllers.IssueInvite)).
		GET("/orders/:id/invites", list(controllers.ListInvites))
	return g
}

func inviteHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/invites/:code", data(controllers.GetInvite)).
		POST("/invites/:code/redeem", data(controllers.RedeemInvite)).
		GET("/invites/:code/qr", func(ctx *gin.Context) {
			invite, status, err := controllers.GetInvite(ctx)
			if err != nil {
				controllers.Fail(ctx, status, err)
				return
			}
			var buf bytes.Buffer
			if err := lib.WriteInviteQRCode(&buf, invite.Code); err != nil {
				log.Printf("Could not render qrcode for invite %d: %s\n", invite.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.Data(http.StatusOK, "image/jpeg", buf.Bytes())
		})
	return g
}
