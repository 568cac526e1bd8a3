package usecase

import (
	"net/http"
	"testing"

	"reweave/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countDefaults(t *testing.T, list []AddressDTO) int {
	t.Helper()
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestAddressUsecase_DefaultStaysUnique(t *testing.T) {
	f := newFixture(t)
	u := f.user("addr@example.com")
	uc := NewAddressUsecase(f.store)

	home, err := uc.Create(f.ctx, u.ID, AddressCreateRequest{Label: "Home", AddressInput: *shippingInput()})
	require.NoError(t, err)
	assert.True(t, home.IsDefault)

	office, err := uc.Create(f.ctx, u.ID, AddressCreateRequest{Label: "Office", AddressInput: *shippingInput()})
	require.NoError(t, err)
	assert.False(t, office.IsDefault)

	require.NoError(t, uc.SetDefault(f.ctx, u.ID, office.ID))
	list, err := uc.List(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, countDefaults(t, list))
	assert.Equal(t, office.ID, list[0].ID)

	// デフォルトを消すと残りがデフォルトになる
	require.NoError(t, uc.Delete(f.ctx, u.ID, office.ID))
	list, err = uc.List(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)
}

func TestAddressUsecase_OwnerScopedAndValidated(t *testing.T) {
	f := newFixture(t)
	u := f.user("mine@example.com")
	other := f.user("yours@example.com")
	uc := NewAddressUsecase(f.store)

	a, err := uc.Create(f.ctx, u.ID, AddressCreateRequest{AddressInput: *shippingInput()})
	require.NoError(t, err)

	_, err = uc.Get(f.ctx, other.ID, a.ID)
	assertHTTPError(t, err, http.StatusNotFound, "Address not found")
	assertHTTPError(t, uc.Delete(f.ctx, other.ID, a.ID), http.StatusNotFound, "Address not found")

	empty := ""
	_, err = uc.Update(f.ctx, u.ID, a.ID, AddressUpdateRequest{City: &empty})
	assertHTTPError(t, err, http.StatusBadRequest, "Missing required address fields: city")

	city := "Penang"
	updated, err := uc.Update(f.ctx, u.ID, a.ID, AddressUpdateRequest{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Penang", updated.City)
	assert.Equal(t, "Aina", updated.RecipientName)
}

func TestPaymentMethodUsecase_CreateValidatesCard(t *testing.T) {
	f := newFixture(t)
	u := f.user("pay@example.com")
	uc := NewPaymentMethodUsecase(f.store)

	_, err := uc.Create(f.ctx, u.ID, PaymentMethodCreateRequest{Type: "cheque", Provider: "x", Token: "t"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid type")

	_, err = uc.Create(f.ctx, u.ID, PaymentMethodCreateRequest{Type: "card", Provider: "visa", Token: "tok", LastFour: "12a4", ExpiryMonth: "01", ExpiryYear: "2030"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid last_four")

	_, err = uc.Create(f.ctx, u.ID, PaymentMethodCreateRequest{Type: "card", Provider: "visa", Token: "tok", LastFour: "1234", ExpiryMonth: "13", ExpiryYear: "2030"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid expiry_month")

	card, err := uc.Create(f.ctx, u.ID, PaymentMethodCreateRequest{Type: "card", Provider: "visa", Token: "tok", LastFour: "1234", ExpiryMonth: "09", ExpiryYear: "2030"})
	require.NoError(t, err)
	assert.True(t, card.IsDefault)

	// fpxは下4桁不要
	fpx, err := uc.Create(f.ctx, u.ID, PaymentMethodCreateRequest{Type: "FPX", Provider: "maybank", Token: "tok2", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodFPX, fpx.Type)
	assert.True(t, fpx.IsDefault)

	list, err := uc.List(f.ctx, u.ID)
	require.NoError(t, err)
	defaults := 0
	for _, pm := range list {
		if pm.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	require.NoError(t, uc.Delete(f.ctx, u.ID, fpx.ID))
	got, err := uc.Get(f.ctx, u.ID, card.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)

	_, err = uc.Get(f.ctx, u.ID, fpx.ID)
	assertHTTPError(t, err, http.StatusNotFound, "Payment method not found")
}

func TestWishlistUsecase(t *testing.T) {
	f := newFixture(t)
	u := f.user("wish@example.com")
	p := f.product("A", "10.00")
	uc := NewWishlistUsecase(f.store)

	_, err := uc.Add(f.ctx, u.ID, 999)
	assertHTTPError(t, err, http.StatusNotFound, "Product not found")

	_, err = uc.Add(f.ctx, u.ID, p.ID)
	require.NoError(t, err)
	_, err = uc.Add(f.ctx, u.ID, p.ID)
	assertHTTPError(t, err, http.StatusConflict, "Product already in wishlist")

	list, err := uc.List(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Product)
	assert.Equal(t, "A", list[0].Product.Name)

	require.NoError(t, uc.Remove(f.ctx, u.ID, p.ID))
	assertHTTPError(t, uc.Remove(f.ctx, u.ID, p.ID), http.StatusNotFound, "Product not in wishlist")

	_, err = uc.Add(f.ctx, u.ID, p.ID)
	require.NoError(t, err)
	require.NoError(t, uc.Clear(f.ctx, u.ID))
	list, err = uc.List(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoyaltyUsecase_Redeem(t *testing.T) {
	f := newFixture(t)
	u := f.user("loyal@example.com")
	_, err := f.store.Repos().Users().AddLoyaltyPoints(f.ctx, u.ID, 1200)
	require.NoError(t, err)
	require.NoError(t, f.store.Repos().Users().SetLoyaltyTier(f.ctx, u.ID, model.TierSilver))
	uc := NewLoyaltyUsecase(f.store)

	bal, err := uc.Balance(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), bal.Points)
	assert.Equal(t, model.TierSilver, bal.CurrentTier)
	assert.Equal(t, int64(3800), bal.PointsToNextTier)

	_, err = uc.Redeem(f.ctx, u.ID, RedeemInput{Points: 5000})
	assertHTTPError(t, err, http.StatusBadRequest, "Insufficient points")

	_, err = uc.Redeem(f.ctx, u.ID, RedeemInput{Points: 0})
	assertHTTPError(t, err, http.StatusBadRequest, "")

	// 使ってランクが下がる
	bal, err = uc.Redeem(f.ctx, u.ID, RedeemInput{Points: 300})
	require.NoError(t, err)
	assert.Equal(t, int64(900), bal.Points)
	assert.Equal(t, model.TierBronze, bal.CurrentTier)

	user, err := f.store.Repos().Users().FindByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierBronze, user.LoyaltyTier)

	hist, err := uc.History(f.ctx, u.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), hist.Total)
	assert.Equal(t, int64(-300), hist.Items[0].Points)
	assert.Equal(t, "redemption", hist.Items[0].Source)
	assert.Equal(t, "Points redeemed", hist.Items[0].Description)
}
