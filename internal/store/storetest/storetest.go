// Package storetest is a conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/utils"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Suppliers", func(t *testing.T) { testSuppliers(t, newStore(t)) })
	t.Run("SupplierSearch", func(t *testing.T) { testSupplierSearch(t, newStore(t)) })
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("Inquiries", func(t *testing.T) { testInquiries(t, newStore(t)) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, newStore(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", UserType: models.UserTypeManufacturer, Role: models.RoleUser, CreatedAt: at(0)}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.False(t, u.ID.IsZero(), "id assigned on create")

	dup := &models.User{Name: "Other", Email: "ada@example.com", PasswordHash: "x", UserType: models.UserTypeSupplier, Role: models.RoleUser, CreatedAt: at(1)}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrDuplicate)

	byEmail, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)
	assert.True(t, byID.CreatedAt.Equal(at(0)))

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindUserByID(ctx, utils.NewSixID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func newSupplier(name, category, location string, specialties ...string) *models.Supplier {
	return &models.Supplier{
		Name:           name,
		Category:       category,
		Location:       location,
		Description:    name + " supplies industry",
		Specialties:    models.CleanTags(specialties),
		Certifications: models.CleanTags(nil),
		CreatedAt:      at(0),
		UpdatedAt:      at(0),
	}
}

func testSuppliers(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := newSupplier("SteelCorp", "Raw Materials", "Johannesburg, GP", "Steel Sheets")
	require.NoError(t, s.CreateSupplier(ctx, first))
	second := newSupplier("TechComponents", "Electronics", "Cape Town, WC")
	require.NoError(t, s.CreateSupplier(ctx, second))
	assert.Less(t, first.Seq, second.Seq, "sequence follows insertion")

	preset := newSupplier("Owned", "Electronics", "Durban, KZN")
	preset.ID = utils.NewSixID()
	require.NoError(t, s.CreateSupplier(ctx, preset))
	again := newSupplier("Owned again", "Electronics", "Durban, KZN")
	again.ID = preset.ID
	assert.ErrorIs(t, s.CreateSupplier(ctx, again), store.ErrDuplicate)

	n, err := s.CountSuppliers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := s.FindSupplierByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Steel Sheets"}, []string(got.Specialties))

	got.Description = "Updated"
	got.Specialties = models.CleanTags([]string{"Steel Sheets", "Welding"})
	got.UpdatedAt = at(5)
	require.NoError(t, s.UpdateSupplier(ctx, got))
	reread, err := s.FindSupplierByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", reread.Description)
	assert.Equal(t, []string{"Steel Sheets", "Welding"}, []string(reread.Specialties))
	assert.Equal(t, first.ID, reread.ID)

	missing := newSupplier("Ghost", "X", "Y")
	missing.ID = utils.NewSixID()
	assert.ErrorIs(t, s.UpdateSupplier(ctx, missing), store.ErrNotFound)
	_, err = s.FindSupplierByID(ctx, missing.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func names(sups []models.Supplier) []string {
	out := make([]string, 0, len(sups))
	for _, s := range sups {
		out = append(out, s.Name)
	}
	return out
}

func testSupplierSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, sp := range []*models.Supplier{
		newSupplier("SteelCorp Manufacturing", "Raw Materials", "Johannesburg, GP", "Steel Sheets", "Metal Fabrication"),
		newSupplier("TechComponents SA", "Electronics", "Cape Town, WC", "PCB Assembly"),
		newSupplier("Precision Tools Ltd", "Tools & Equipment", "Durban, KZN", "CNC Tools"),
		newSupplier("ChemSupply Solutions", "Chemicals", "Port Elizabeth, EC", "Industrial Chemicals"),
		newSupplier("Metalworks 100%", "Raw Materials", "Gauteng Province, GP", "Casting"),
	} {
		require.NoError(t, s.CreateSupplier(ctx, sp))
	}

	search := func(f models.SupplierFilter, offset, limit int) ([]string, int64) {
		page, total, err := s.SearchSuppliers(ctx, f, offset, limit)
		require.NoError(t, err)
		return names(page), total
	}

	all, total := search(models.SupplierFilter{}, 0, 10)
	assert.EqualValues(t, 5, total)
	assert.Equal(t, "SteelCorp Manufacturing", all[0], "registration order")

	// case-insensitive match on specialties
	got, total := search(models.SupplierFilter{Search: "pcb"}, 0, 10)
	assert.Equal(t, []string{"TechComponents SA"}, got)
	assert.EqualValues(t, 1, total)

	// OR across name and specialties
	got, _ = search(models.SupplierFilter{Search: "metal"}, 0, 10)
	assert.ElementsMatch(t, []string{"SteelCorp Manufacturing", "Metalworks 100%"}, got)

	// LIKE wildcards are literal
	got, _ = search(models.SupplierFilter{Search: "100%"}, 0, 10)
	assert.Equal(t, []string{"Metalworks 100%"}, got)
	got, _ = search(models.SupplierFilter{Search: "_"}, 0, 10)
	assert.Empty(t, got)

	got, _ = search(models.SupplierFilter{Category: "Raw Materials", Search: "steel"}, 0, 10)
	assert.Equal(t, []string{"SteelCorp Manufacturing"}, got)

	got, _ = search(models.SupplierFilter{Location: "GP"}, 0, 10)
	assert.ElementsMatch(t, []string{"SteelCorp Manufacturing", "Metalworks 100%"}, got)

	// category is exact
	got, _ = search(models.SupplierFilter{Category: "raw materials"}, 0, 10)
	assert.Empty(t, got)

	page, total := search(models.SupplierFilter{}, 2, 2)
	assert.Equal(t, []string{"Precision Tools Ltd", "ChemSupply Solutions"}, page)
	assert.EqualValues(t, 5, total)

	page, total = search(models.SupplierFilter{}, 20, 10)
	assert.Empty(t, page)
	assert.EqualValues(t, 5, total, "total survives an out of range page")
}

func newProduct(supplierID utils.SixID, name string, created time.Time) *models.Product {
	p := &models.Product{SupplierID: supplierID, CreatedAt: created, UpdatedAt: created}
	p.Apply(models.ProductFields{
		Name: name, Description: "desc", Category: "Raw Materials",
		Price: "From R 150 per kg", LeadTime: "7-10 days", MinOrderQuantity: "500 kg",
	})
	return p
}

func testProducts(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner, other := utils.NewSixID(), utils.NewSixID()

	older := newProduct(owner, "Sheets", at(0))
	newer := newProduct(owner, "Rods", at(10))
	foreign := newProduct(other, "Chips", at(5))
	for _, p := range []*models.Product{older, newer, foreign} {
		require.NoError(t, s.CreateProduct(ctx, p))
		assert.False(t, p.ID.IsZero())
	}

	list, err := s.ListProductsBySupplier(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Rods", list[0].Name)
	assert.Equal(t, "Sheets", list[1].Name)

	// Same timestamp: the later insert lists first.
	first := newProduct(other, "Bars", at(30))
	second := newProduct(other, "Coils", at(30))
	require.NoError(t, s.CreateProduct(ctx, first))
	require.NoError(t, s.CreateProduct(ctx, second))
	tied, err := s.ListProductsBySupplier(ctx, other)
	require.NoError(t, err)
	require.Len(t, tied, 3)
	assert.Equal(t, []string{"Coils", "Bars", "Chips"}, []string{tied[0].Name, tied[1].Name, tied[2].Name})

	empty, err := s.ListProductsBySupplier(ctx, utils.NewSixID())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.FindOwnedProduct(ctx, older.ID, other)
	assert.ErrorIs(t, err, store.ErrNotFound)

	older.Name = "Sheets v2"
	older.UpdatedAt = at(20)
	require.NoError(t, s.UpdateOwnedProduct(ctx, older))
	got, err := s.FindOwnedProduct(ctx, older.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Sheets v2", got.Name)

	hijack := *older
	hijack.SupplierID = other
	hijack.Name = "stolen"
	assert.ErrorIs(t, s.UpdateOwnedProduct(ctx, &hijack), store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteOwnedProduct(ctx, older.ID, other), store.ErrNotFound)
	_, err = s.FindOwnedProduct(ctx, older.ID, owner)
	require.NoError(t, err, "mismatched delete removes nothing")

	require.NoError(t, s.DeleteOwnedProduct(ctx, older.ID, owner))
	assert.ErrorIs(t, s.DeleteOwnedProduct(ctx, older.ID, owner), store.ErrNotFound)
}

func newInquiry(manufacturer *utils.SixID, supplier utils.SixID, product string, created time.Time) *models.Inquiry {
	return &models.Inquiry{
		ManufacturerID:   manufacturer,
		ManufacturerName: models.UnknownManufacturer,
		SupplierID:       supplier,
		SupplierName:     models.UnknownSupplier,
		Subject:          product,
		ProductName:      product,
		Message:          "Need a quote",
		Priority:         models.PriorityMedium,
		Status:           models.InquiryStatusNew,
		CreatedAt:        created,
	}
}

func productNames(list []models.Inquiry) []string {
	out := make([]string, 0, len(list))
	for _, i := range list {
		out = append(out, i.ProductName)
	}
	return out
}

func testInquiries(t *testing.T, s store.Store) {
	ctx := context.Background()
	m1, m2 := utils.NewSixID(), utils.NewSixID()
	sup1, sup2 := utils.NewSixID(), utils.NewSixID()

	a := newInquiry(&m1, sup1, "A", at(0))
	b := newInquiry(&m1, sup1, "B", at(5))
	c := newInquiry(&m2, sup2, "C", at(5)) // same instant as B, inserted later
	guest := newInquiry(nil, sup1, "D", at(1))
	for _, inq := range []*models.Inquiry{a, b, c, guest} {
		require.NoError(t, s.CreateInquiry(ctx, inq))
		assert.False(t, inq.ID.IsZero())
	}
	assert.Less(t, a.Seq, b.Seq)

	all, err := s.ListInquiries(ctx, models.InquiryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "A"}, productNames(all), "newest first, ties in insertion order")

	bySupplier, err := s.ListInquiries(ctx, models.InquiryFilter{SupplierID: &sup1})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "A"}, productNames(bySupplier))

	byManufacturer, err := s.ListInquiries(ctx, models.InquiryFilter{ManufacturerID: &m1, SupplierID: &sup1})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, productNames(byManufacturer))

	storedGuest, err := s.FindInquiry(ctx, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, storedGuest.ManufacturerID)
	assert.Nil(t, storedGuest.RespondedAt)
	assert.Nil(t, storedGuest.Response)

	_, err = s.FindOwnedInquiry(ctx, a.ID, sup2)
	assert.ErrorIs(t, err, store.ErrNotFound)

	owned, err := s.FindOwnedInquiry(ctx, a.ID, sup1)
	require.NoError(t, err)
	require.NoError(t, owned.Respond(models.InquiryResponse{Message: "Quote: R75000", QuotedPrice: "R75000"}, at(30), true))
	require.NoError(t, s.SaveInquiry(ctx, owned))

	reread, err := s.FindInquiry(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusResponded, reread.Status)
	require.NotNil(t, reread.Response)
	assert.Equal(t, "Quote: R75000", *reread.Response)
	require.NotNil(t, reread.QuotedPrice)
	assert.Equal(t, "R75000", *reread.QuotedPrice)
	assert.Nil(t, reread.DeliveryTime)
	require.NotNil(t, reread.RespondedAt)
	assert.True(t, reread.RespondedAt.Equal(at(30)))
	assert.NoError(t, reread.CheckInvariants())

	responded := models.InquiryStatusResponded
	onlyResponded, err := s.ListInquiries(ctx, models.InquiryFilter{Status: &responded})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, productNames(onlyResponded))

	forged := *reread
	forged.SupplierID = sup2
	assert.ErrorIs(t, s.SaveInquiry(ctx, &forged), store.ErrNotFound)
}

func testOrders(t *testing.T, s store.Store) {
	ctx := context.Background()
	supplier, buyer := utils.NewSixID(), utils.NewSixID()

	items := []models.OrderItem{
		{ProductID: utils.NewSixID(), Quantity: 3, Price: decimal.RequireFromString("150.50")},
		{ProductID: utils.NewSixID(), Quantity: 1, Price: decimal.RequireFromString("20")},
	}
	first := &models.Order{SupplierID: supplier, BuyerID: buyer, ShippingAddress: "1 Main Rd", OrderDate: at(0), Items: items, TotalAmount: models.Total(items)}
	require.NoError(t, s.CreateOrder(ctx, first))
	assert.False(t, first.ID.IsZero())

	second := &models.Order{SupplierID: supplier, BuyerID: buyer, ShippingAddress: "2 Side St", OrderDate: at(10),
		Items: []models.OrderItem{{ProductID: utils.NewSixID(), Quantity: 2, Price: decimal.RequireFromString("5")}}}
	second.TotalAmount = models.Total(second.Items)
	require.NoError(t, s.CreateOrder(ctx, second))

	list, err := s.ListOrdersBySupplier(ctx, supplier)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	got := list[1]
	assert.Equal(t, first.ID, got.ID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("150.50")))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("471.50")))

	none, err := s.ListOrdersBySupplier(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, none)
}
