package controllers

import (
	"eventadmission/src/admission"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RegistrationView struct {
	*models.Registration
	WaitlistPosition int `json:"waitlist_position,omitempty"`
}

func Register(ctx *gin.Context) (*models.Registration, int, error) {
	var body types.CreateRegistrationRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	contact := body.ContactEmail
	if contact == "" {
		contact = ctx.GetString("email")
	}
	return created(admission.GetEngine().Register(ctx.Request.Context(), admission.RegisterInput{
		EventID:      body.EventID,
		UserID:       ctx.GetUint("id"),
		ContactEmail: contact,
	}))
}

func ListOwnRegistrations(ctx *gin.Context) ([]models.Registration, int, error) {
	var query types.ListRegistrationsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ListRegistrations(ctx.Request.Context(), admission.RegistrationFilter{
		UserID: ctx.GetUint("id"),
		Status: types.RegistrationStatus(query.Status),
	}))
}

func GetRegistration(ctx *gin.Context) (*RegistrationView, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	e := admission.GetEngine()
	registration, err := e.GetRegistration(ctx.Request.Context(), params.ID, Actor(ctx))
	if err != nil {
		status, _ := ErrorStatus(err)
		return nil, status, err
	}
	position, err := e.WaitlistPosition(ctx.Request.Context(), registration.ID)
	if err != nil {
		status, _ := ErrorStatus(err)
		return nil, status, err
	}
	return &RegistrationView{Registration: registration, WaitlistPosition: position}, http.StatusOK, nil
}

func CancelRegistration(ctx *gin.Context) (*models.Registration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().CancelRegistration(ctx.Request.Context(), params.ID, Actor(ctx)))
}

func ListEventRegistrations(ctx *gin.Context) ([]models.Registration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var query types.ListRegistrationsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ListRegistrations(ctx.Request.Context(), admission.RegistrationFilter{
		EventID: params.ID,
		Status:  types.RegistrationStatus(query.Status),
	}))
}

func ReviewRegistration(ctx *gin.Context) (*models.Registration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.ReviewRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ReviewRegistration(ctx.Request.Context(), admission.ReviewInput{
		RegistrationID: params.ID,
		Decision:       body.Decision,
		Note:           body.Note,
		ReviewerID:     ctx.GetUint("id"),
	}))
}
