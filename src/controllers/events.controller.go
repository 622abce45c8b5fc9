package controllers

import (
	"eventadmission/src/admission"
	"eventadmission/src/config"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func parseTime(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(config.TIME_PARSE_FORMAT, *value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func CreateEvent(ctx *gin.Context) (*models.Event, int, error) {
	var body types.CreateEventRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	startsAt, err := parseTime(&body.StartsAt)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	deadline, err := parseTime(body.RegistrationDeadline)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	open := true
	if body.RegistrationOpen != nil {
		open = *body.RegistrationOpen
	}
	return created(admission.GetEngine().CreateEvent(ctx.Request.Context(), admission.EventInput{
		Title:                body.Title,
		About:                body.About,
		Location:             body.Location,
		StartsAt:             *startsAt,
		RegistrationDeadline: deadline,
		MaxAttendees:         body.MaxAttendees,
		RequireApproval:      body.RequireApproval,
		RegistrationOpen:     open,
		CreatedBy:            ctx.GetUint("id"),
	}))
}

func GetEvent(ctx *gin.Context) (*models.Event, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().GetEvent(ctx.Request.Context(), params.ID))
}

func ListTicketTypes(ctx *gin.Context) ([]models.TicketType, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ListTicketTypes(ctx.Request.Context(), params.ID))
}

func CreateTicketType(ctx *gin.Context) (*models.TicketType, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.CreateTicketTypeRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return created(admission.GetEngine().CreateTicketType(ctx.Request.Context(), params.ID, admission.TicketTypeInput{
		Name:        body.Name,
		Price:       body.Price,
		Currency:    body.Currency,
		MaxQuantity: body.MaxQuantity,
	}))
}

func AddPriceTier(ctx *gin.Context) (*models.PriceTier, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.CreatePriceTierRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return created(admission.GetEngine().AddPriceTier(ctx.Request.Context(), params.ID, body.Threshold, body.Price))
}

func UpdateTicketType(ctx *gin.Context) (*models.TicketType, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.UpdateTicketTypeRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().SetTicketTypeActive(ctx.Request.Context(), params.ID, *body.Active))
}

func UpdateRegistrationWindow(ctx *gin.Context) (*models.Event, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.UpdateRegistrationWindowRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	deadline, err := parseTime(body.RegistrationDeadline)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().SetRegistrationWindow(ctx.Request.Context(), params.ID, *body.RegistrationOpen, deadline))
}

func AdjustCapacity(ctx *gin.Context) (*models.Event, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.AdjustCapacityRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().AdjustCapacity(ctx.Request.Context(), params.ID, body.MaxAttendees))
}

func CancelEvent(ctx *gin.Context) (*models.Event, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().CancelEvent(ctx.Request.Context(), params.ID))
}

// respond turns an engine result into the (value, status, error) triple handlers expect.
func respond[T any](v T, err error) (T, int, error) {
	if err != nil {
		status, _ := ErrorStatus(err)
		return v, status, err
	}
	return v, http.StatusOK, nil
}

func created[T any](v T, err error) (T, int, error) {
	v, status, err := respond(v, err)
	if err == nil {
		status = http.StatusCreated
	}
	return v, status, err
}
