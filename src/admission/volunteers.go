package admission

import (
	"context"
	"errors"
	"eventadmission/src/models"
	"eventadmission/src/models/scopes"
	"eventadmission/src/types"
	"fmt"

	"gorm.io/gorm"
)

const rewardSourceVolunteer = "volunteer_registration"

type VolunteerRoleInput struct {
	Name         string
	Description  string
	RecruitCount uint
	CPReward     uint
}

type VolunteerReviewInput struct {
	ApplicationID uint
	Decision      types.Decision
	ReviewerID    uint
}

func (e *Engine) CreateVolunteerRole(ctx context.Context, eventID uint, in VolunteerRoleInput) (*models.EventVolunteerRole, error) {
	var event models.Event
	if err := e.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		return nil, notFound(err, "event", eventID)
	}
	role := models.EventVolunteerRole{
		EventID:      event.ID,
		Name:         in.Name,
		Description:  in.Description,
		RecruitCount: in.RecruitCount,
		CPReward:     in.CPReward,
	}
	if err := e.db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (e *Engine) ApplyVolunteer(ctx context.Context, roleID uint, userID uint, note string) (*models.VolunteerRegistration, error) {
	var application models.VolunteerRegistration
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var role models.EventVolunteerRole
		if err := tx.First(&role, roleID).Error; err != nil {
			return notFound(err, "volunteer role", roleID)
		}
		var event models.Event
		if err := tx.First(&event, role.EventID).Error; err != nil {
			return notFound(err, "event", role.EventID)
		}
		if event.Status == types.EVENT_CANCELLED {
			return fmt.Errorf("event %d: %w", event.ID, ErrRegistrationClosed)
		}

		var count int64
		if err := tx.Model(&models.VolunteerRegistration{}).
			Where("role_id = ? AND user_id = ? AND status <> ?", role.ID, userID, types.VOLUNTEER_CANCELLED).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("user %d for role %d: %w", userID, role.ID, ErrDuplicateApplication)
		}

		application = models.VolunteerRegistration{
			RoleID:    role.ID,
			EventID:   role.EventID,
			UserID:    userID,
			Status:    types.VOLUNTEER_APPLIED,
			Note:      note,
			AppliedAt: e.now(),
		}
		if err := tx.Create(&application).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("user %d for role %d: %w", userID, role.ID, ErrDuplicateApplication)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &application, nil
}

// ReviewApplication approves or rejects a volunteer application. Roles have no
// waitlist: approving past recruitCount fails with ErrRoleFull.
func (e *Engine) ReviewApplication(ctx context.Context, in VolunteerReviewInput) (*models.VolunteerRegistration, error) {
	var application models.VolunteerRegistration
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var current models.VolunteerRegistration
		if err := tx.First(&current, in.ApplicationID).Error; err != nil {
			return notFound(err, "volunteer registration", in.ApplicationID)
		}
		var role models.EventVolunteerRole
		if err := tx.Scopes(scopes.ForUpdate).First(&role, current.RoleID).Error; err != nil {
			return notFound(err, "volunteer role", current.RoleID)
		}
		if err := tx.Scopes(scopes.ForUpdate).First(&application, in.ApplicationID).Error; err != nil {
			return notFound(err, "volunteer registration", in.ApplicationID)
		}

		review := map[string]any{"reviewed_by": in.ReviewerID, "reviewed_at": e.now()}
		kind := types.NOTIFY_VOLUNTEER_REJECTED
		switch in.Decision {
		case types.DECISION_APPROVE:
			if err := volunteerTransitions.check(application.Status, types.VOLUNTEER_APPROVED); err != nil {
				return fmt.Errorf("volunteer registration %d: %w", application.ID, err)
			}
			var approved int64
			if err := tx.Model(&models.VolunteerRegistration{}).
				Where("role_id = ? AND status = ?", role.ID, types.VOLUNTEER_APPROVED).
				Count(&approved).Error; err != nil {
				return err
			}
			if approved >= int64(role.RecruitCount) {
				return fmt.Errorf("role %d recruits %d: %w", role.ID, role.RecruitCount, ErrRoleFull)
			}
			if err := moveVolunteer(tx, &application, types.VOLUNTEER_APPROVED, review); err != nil {
				return err
			}
			kind = types.NOTIFY_VOLUNTEER_APPROVED
		case types.DECISION_REJECT:
			if err := moveVolunteer(tx, &application, types.VOLUNTEER_REJECTED, review); err != nil {
				return err
			}
		default:
			return fmt.Errorf("decision %q: %w", in.Decision, ErrInvalidStateTransition)
		}

		return e.notify(tx, box, application.UserID, kind, types.JSONB{
			"volunteer_registration_id": application.ID,
			"role_id":                   role.ID,
			"event_id":                  role.EventID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (e *Engine) CancelApplication(ctx context.Context, applicationID uint, actor Actor) (*models.VolunteerRegistration, error) {
	var application models.VolunteerRegistration
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		if err := tx.Scopes(scopes.ForUpdate).First(&application, applicationID).Error; err != nil {
			return notFound(err, "volunteer registration", applicationID)
		}
		if !actor.owns(application.UserID) {
			return fmt.Errorf("volunteer registration %d: %w", applicationID, ErrForbidden)
		}
		if application.Status == types.VOLUNTEER_CANCELLED {
			return nil
		}
		return moveVolunteer(tx, &application, types.VOLUNTEER_CANCELLED, nil)
	})
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (e *Engine) CheckIn(ctx context.Context, applicationID uint) (*models.VolunteerRegistration, error) {
	return e.raiseVolunteerFlag(ctx, applicationID, "checked_in", nil, nil)
}

func (e *Engine) Complete(ctx context.Context, applicationID uint) (*models.VolunteerRegistration, error) {
	return e.raiseVolunteerFlag(ctx, applicationID, "completed", func(vr *models.VolunteerRegistration) error {
		if !vr.CheckedIn {
			return fmt.Errorf("volunteer registration %d: %w", vr.ID, ErrNotCheckedIn)
		}
		return nil
	}, nil)
}

// AwardCP grants the role's CP reward once. The ledger row is written in the same
// transaction as the flag, and its unique source key rejects a second grant.
func (e *Engine) AwardCP(ctx context.Context, applicationID uint) (*models.VolunteerRegistration, error) {
	return e.raiseVolunteerFlag(ctx, applicationID, "cp_awarded", func(vr *models.VolunteerRegistration) error {
		if !vr.Completed {
			return fmt.Errorf("volunteer registration %d: %w", vr.ID, ErrNotCompleted)
		}
		return nil
	}, func(tx *gorm.DB, box *outbox, vr *models.VolunteerRegistration) error {
		var role models.EventVolunteerRole
		if err := tx.First(&role, vr.RoleID).Error; err != nil {
			return notFound(err, "volunteer role", vr.RoleID)
		}
		entry := models.RewardLedgerEntry{
			UserID:     vr.UserID,
			Amount:     int64(role.CPReward),
			SourceType: rewardSourceVolunteer,
			SourceID:   vr.ID,
			Note:       role.Name,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return e.notify(tx, box, vr.UserID, types.NOTIFY_CP_AWARDED, types.JSONB{
			"volunteer_registration_id": vr.ID,
			"amount":                    entry.Amount,
		})
	})
}

// raiseVolunteerFlag sets one of the one-way booleans (checked_in, completed,
// cp_awarded) and its timestamp. A flag that is already set is a no-op and
// onRaise does not run.
func (e *Engine) raiseVolunteerFlag(
	ctx context.Context,
	applicationID uint,
	column string,
	precondition func(*models.VolunteerRegistration) error,
	onRaise func(*gorm.DB, *outbox, *models.VolunteerRegistration) error,
) (*models.VolunteerRegistration, error) {
	var application models.VolunteerRegistration
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		if err := tx.Scopes(scopes.ForUpdate).First(&application, applicationID).Error; err != nil {
			return notFound(err, "volunteer registration", applicationID)
		}
		if application.Status != types.VOLUNTEER_APPROVED {
			return fmt.Errorf("volunteer registration %d is %s: %w", application.ID, application.Status, ErrInvalidStateTransition)
		}
		if precondition != nil {
			if err := precondition(&application); err != nil {
				return err
			}
		}

		res := tx.Model(&models.VolunteerRegistration{}).
			Where(fmt.Sprintf("id = ? AND %s = ?", column), application.ID, false).
			Updates(map[string]any{column: true, column + "_at": e.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if onRaise != nil {
			if err := onRaise(tx, box, &application); err != nil {
				return err
			}
		}
		return tx.First(&application, application.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (e *Engine) ListVolunteerRegistrations(ctx context.Context, roleID uint) ([]models.VolunteerRegistration, error) {
	applications := []models.VolunteerRegistration{}
	err := e.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Order("applied_at asc").
		Find(&applications).
		Error
	return applications, err
}
