package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/DFBlok/market-link-app/internal/utils"
)

func TestInquiry_GuestSurvivesBSON(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	guest := Inquiry{SupplierID: utils.NewSixID(), ProductName: "Copper Wire", Status: InquiryStatusNew, CreatedAt: created}
	guest.ID = utils.NewSixID()

	data, err := bson.Marshal(guest)
	require.NoError(t, err)
	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	_, present := raw["manufacturer_id"]
	assert.False(t, present, "guest manufacturer is not stored")

	var back Inquiry
	require.NoError(t, bson.Unmarshal(data, &back))
	assert.Nil(t, back.ManufacturerID)
	assert.Equal(t, guest.ID, back.ID)

	buyer := utils.NewSixID()
	guest.ManufacturerID = &buyer
	data, err = bson.Marshal(guest)
	require.NoError(t, err)
	back = Inquiry{}
	require.NoError(t, bson.Unmarshal(data, &back))
	require.NotNil(t, back.ManufacturerID)
	assert.Equal(t, buyer, *back.ManufacturerID)
}

func TestInquiry_ManualTransitionStampsRespondedAtOnly(t *testing.T) {
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	for _, target := range []InquiryStatus{InquiryStatusInProgress, InquiryStatusClosed} {
		inq := Inquiry{Status: InquiryStatusNew, CreatedAt: created}
		require.NoError(t, inq.TransitionTo(target, later))
		assert.Equal(t, target, inq.Status)
		require.NotNil(t, inq.RespondedAt)
		assert.Equal(t, later, *inq.RespondedAt)
		assert.Nil(t, inq.Response)
		assert.NoError(t, inq.CheckInvariants())
	}

	msg := "answer"
	broken := Inquiry{Status: InquiryStatusInProgress, CreatedAt: created, Response: &msg}
	assert.Error(t, broken.CheckInvariants(), "response without respondedAt")
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		page, limit, want int
	}{
		{1, 10, 0},
		{3, 10, 20},
		{0, 10, 0},
		{2, 0, 0},
		{math.MaxInt/2 + 1, 2, math.MaxInt - 1},
		{math.MaxInt/2 + 2, 2, math.MaxInt},
		{math.MaxInt, 100, math.MaxInt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageOffset(tt.page, tt.limit), "page %d limit %d", tt.page, tt.limit)
	}
}
