package models

import "eventadmission/src/types"

// TicketType counters are owned by the capacity ledger; nothing else writes CurrentQuantity.
type TicketType struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	EventID         uint   `gorm:"index" json:"event_id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	Currency        string `json:"currency"`
	MaxQuantity     *uint  `json:"max_quantity"`
	CurrentQuantity uint   `gorm:"not null;default:0" json:"current_quantity"`
	Active          bool   `json:"active"`

	PriceTiers []PriceTier `json:"price_tiers,omitempty"`

	Stats *TicketTypeStats `gorm:"-" json:"stats,omitempty"`

	types.Timestamps
}

type PriceTier struct {
	ID           uint  `gorm:"primarykey" json:"id"`
	TicketTypeID uint  `gorm:"index" json:"ticket_type_id"`
	Threshold    uint  `json:"threshold"`
	Price        int64 `json:"price"`
	Active       bool  `json:"active"`

	types.Timestamps
}

type TicketTypeStats struct {
	Sold        uint  `json:"sold"`
	Remaining   *uint `json:"remaining"`
	ActivePrice int64 `json:"active_price"`
	SoldOut     bool  `json:"sold_out"`
}
