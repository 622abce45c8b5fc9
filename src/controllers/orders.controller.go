package controllers

import (
	"eventadmission/src/admission"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func CreateOrder(ctx *gin.Context) (*models.Order, int, error) {
	var body types.CreateOrderRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	contact := body.ContactEmail
	if contact == "" {
		contact = ctx.GetString("email")
	}
	return created(admission.GetEngine().CreateOrder(ctx.Request.Context(), admission.OrderRequest{
		UserID:       ctx.GetUint("id"),
		EventID:      body.EventID,
		TicketTypeID: body.TicketTypeID,
		Quantity:     body.Quantity,
		ContactEmail: contact,
	}))
}

func ListOrders(ctx *gin.Context) ([]models.Order, int, error) {
	return respond(admission.GetEngine().ListOrders(ctx.Request.Context(), ctx.GetUint("id")))
}

// orderAction binds the :id of an order route and runs fn for the calling actor.
func orderAction[T any](ctx *gin.Context, fn func(e *admission.Engine, id uint, actor admission.Actor) (T, error)) (T, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		var zero T
		return zero, http.StatusBadRequest, err
	}
	return respond(fn(admission.GetEngine(), params.ID, Actor(ctx)))
}

func GetOrder(ctx *gin.Context) (*models.Order, int, error) {
	return orderAction(ctx, func(e *admission.Engine, id uint, actor admission.Actor) (*models.Order, error) {
		return e.GetOrder(ctx.Request.Context(), id, actor)
	})
}

func PayOrder(ctx *gin.Context) (*models.Order, int, error) {
	return orderAction(ctx, func(e *admission.Engine, id uint, actor admission.Actor) (*models.Order, error) {
		return e.InitiatePayment(ctx.Request.Context(), id, actor)
	})
}

func CancelOrder(ctx *gin.Context) (*models.Order, int, error) {
	return orderAction(ctx, func(e *admission.Engine, id uint, actor admission.Actor) (*models.Order, error) {
		return e.CancelOrder(ctx.Request.Context(), id, actor)
	})
}

func RefundOrder(ctx *gin.Context) (*models.Order, int, error) {
	return orderAction(ctx, func(e *admission.Engine, id uint, actor admission.Actor) (*models.Order, error) {
		return e.RequestRefund(ctx.Request.Context(), id, actor)
	})
}

func IssueInvite(ctx *gin.Context) (*models.OrderInvite, int, error) {
	invite, status, err := orderAction(ctx, func(e *admission.Engine, id uint, actor admission.Actor) (*models.OrderInvite, error) {
		return e.IssueInvite(ctx.Request.Context(), id, actor)
	})
	if err == nil {
		status = http.StatusCreated
	}
	return invite, status, err
}

func ListInvites(ctx *gin.Context) ([]models.OrderInvite, int, error) {
	return orderAction(ctx, func(e *admission.Engine, id uint, actor admission.Actor) ([]models.OrderInvite, error) {
		return e.ListInvites(ctx.Request.Context(), id, actor)
	})
}

func RedeemInvite(ctx *gin.Context) (*models.Registration, int, error) {
	var params types.InviteCodeParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.RedeemInviteRequestBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	contact := body.ContactEmail
	if contact == "" {
		contact = ctx.GetString("email")
	}
	return created(admission.GetEngine().RedeemInvite(ctx.Request.Context(), params.Code, ctx.GetUint("id"), contact))
}

func GetInvite(ctx *gin.Context) (*models.OrderInvite, int, error) {
	var params types.InviteCodeParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().GetInvite(ctx.Request.Context(), params.Code))
}

func SweepExpiredOrders(ctx *gin.Context) (int, int, error) {
	return respond(admission.GetEngine().SweepExpiredOrders(ctx.Request.Context()))
}
