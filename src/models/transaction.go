package models

import (
	"eventadmission/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction logs every payment provider callback. (reference_id, kind) is unique
// so at-least-once deliveries collapse onto one row.
type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`

	OrderID     uint                  `gorm:"index" json:"order_id"`
	Kind        types.TransactionKind `gorm:"uniqueIndex:idx_transactions_reference;size:32" json:"kind"`
	ReferenceID string                `gorm:"uniqueIndex:idx_transactions_reference;size:255" json:"reference_id"`
	Outcome     string                `json:"outcome"`
	Amount      int64                 `json:"amount"`
	Currency    string                `json:"currency,omitempty"`
	Metadata    types.JSONB           `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (Transaction) TableName() string {
	return "payment_transactions"
}
