package models

import (
	"time"

	"github.com/DFBlok/market-link-app/internal/utils"
)

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id utils.SixID)
	GetID() utils.SixID
}

// Base carries the primary key shared by every stored entity.
type Base struct {
	ID utils.SixID `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(10)"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewSixID()
}

func (m *Base) SetID(id utils.SixID) {
	m.ID = id
}

func (m *Base) GetID() utils.SixID {
	return m.ID
}

func NewBase() Base {
	return Base{
		ID: utils.NewSixID(),
	}
}

// Now returns the current time in the precision every store round-trips.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// StringPtr returns nil for an empty (after trimming) string, a pointer to the trimmed value otherwise.
func StringPtr(s string) *string {
	if trimmed := trimSpace(s); trimmed != "" {
		return &trimmed
	}
	return nil
}
