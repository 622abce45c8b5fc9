package controllers

import (
	"eventadmission/src/admission"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func CreateVolunteerRole(ctx *gin.Context) (*models.EventVolunteerRole, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.CreateVolunteerRoleRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return created(admission.GetEngine().CreateVolunteerRole(ctx.Request.Context(), params.ID, admission.VolunteerRoleInput{
		Name:         body.Name,
		Description:  body.Description,
		RecruitCount: body.RecruitCount,
		CPReward:     body.CPReward,
	}))
}

func ApplyVolunteer(ctx *gin.Context) (*models.VolunteerRegistration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.ApplyVolunteerRequestBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	return created(admission.GetEngine().ApplyVolunteer(ctx.Request.Context(), params.ID, ctx.GetUint("id"), body.Note))
}

func ListVolunteerRegistrations(ctx *gin.Context) ([]models.VolunteerRegistration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ListVolunteerRegistrations(ctx.Request.Context(), params.ID))
}

func CancelApplication(ctx *gin.Context) (*models.VolunteerRegistration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().CancelApplication(ctx.Request.Context(), params.ID, Actor(ctx)))
}

func ReviewApplication(ctx *gin.Context) (*models.VolunteerRegistration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.ReviewRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(admission.GetEngine().ReviewApplication(ctx.Request.Context(), admission.VolunteerReviewInput{
		ApplicationID: params.ID,
		Decision:      body.Decision,
		ReviewerID:    ctx.GetUint("id"),
	}))
}

func volunteerAction(ctx *gin.Context, fn func(id uint) (*models.VolunteerRegistration, error)) (*models.VolunteerRegistration, int, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(fn(params.ID))
}

func CheckInVolunteer(ctx *gin.Context) (*models.VolunteerRegistration, int, error) {
	return volunteerAction(ctx, func(id uint) (*models.VolunteerRegistration, error) {
		return admission.GetEngine().CheckIn(ctx.Request.Context(), id)
	})
}

func CompleteVolunteer(ctx *gin.Context) (*models.VolunteerRegistration, int, error) {
	return volunteerAction(ctx, func(id uint) (*models.VolunteerRegistration, error) {
		return admission.GetEngine().Complete(ctx.Request.Context(), id)
	})
}

func AwardVolunteerCP(ctx *gin.Context) (*models.VolunteerRegistration, int, error) {
	return volunteerAction(ctx, func(id uint) (*models.VolunteerRegistration, error) {
		return admission.GetEngine().AwardCP(ctx.Request.Context(), id)
	})
}
