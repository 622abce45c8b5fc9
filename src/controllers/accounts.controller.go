package controllers

import (
	"eventadmission/src/admission"
	"eventadmission/src/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type notificationsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func ListNotifications(ctx *gin.Context) ([]models.Notification, int, error) {
	var query notificationsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ListNotifications(ctx.Request.Context(), ctx.GetUint("id"), query.Limit))
}
