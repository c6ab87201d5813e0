package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/payment"
	"github.com/Skotchmaster/coop_market/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus_SettlementCascadesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID, a, _ := seedCart(t, f, "g-settle")

	res, err := f.payment.PayForCart(ctx, CartPaymentInput{
		Owner: domain.GuestOwner("g-settle"), CartID: cartID, Method: "qris",
	})
	require.NoError(t, err)
	require.Equal(t, domain.CartAwaitingPayment, f.cart(t, cartID).Status)

	f.gw.setStatus(res.OrderID, "pending")
	view, err := f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, view.Status)
	assert.Zero(t, f.pub.count("payment_status_changed"))

	f.gw.setStatus(res.OrderID, "settlement")
	view, err = f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSettlement, view.Status)

	cart := f.cart(t, cartID)
	assert.True(t, cart.Paid)
	assert.Equal(t, domain.CartPaid, cart.Status)
	require.NotNil(t, cart.FulfillmentStatus)
	assert.Equal(t, domain.FulfillmentAwaitingStaff, *cart.FulfillmentStatus)

	stored, err := f.repo.GetPaymentByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaidAt)
	paidAt := *stored.PaidAt

	// Repeating the check is a no-op.
	_, err = f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.pub.count("payment_status_changed"))
	assert.Equal(t, 8, testutil.Stock(t, f.db, a.ID))

	// capture after settlement is success to success: status moves, nothing cascades.
	f.gw.setStatus(res.OrderID, "capture")
	view, err = f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCapture, view.Status)
	stored, err = f.repo.GetPaymentByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.True(t, paidAt.Equal(*stored.PaidAt))
}

func TestCheckStatus_TopUpCreditsOnceUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "Lina", "pengguna")

	res, err := f.payment.TopUp(ctx, TopUpInput{UserID: user.ID, Amount: decimal.NewFromInt(50000), Method: "qris"})
	require.NoError(t, err)
	f.gw.setStatus(res.OrderID, "settlement")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := f.payment.CheckStatus(ctx, res.OrderID)
			if assert.NoError(t, err) {
				assert.Equal(t, domain.PaymentSettlement, view.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "50000", f.user(t, user.ID).Balance.String())
	assert.Equal(t, 1, f.pub.count("payment_status_changed"))
}

func TestCheckStatus_MembershipActivatesOnSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "Bayu", "pengguna")

	res, err := f.payment.PayForMembership(ctx, MembershipPaymentInput{UserID: user.ID, Method: "gopay"})
	require.NoError(t, err)
	assert.NotEqual(t, domain.MembershipActive, f.user(t, user.ID).MembershipStatus)

	f.gw.setStatus(res.OrderID, "settlement")
	_, err = f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipActive, f.user(t, user.ID).MembershipStatus)
}

func TestCheckStatus_ExpiryReleasesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID, a, b := seedCart(t, f, "g-expire")
	owner := domain.GuestOwner("g-expire")

	res, err := f.payment.PayForCart(ctx, CartPaymentInput{
		Owner: owner, CartID: cartID, Method: "bank", Params: payment.Params{Bank: "bri"},
	})
	require.NoError(t, err)
	require.Equal(t, 8, testutil.Stock(t, f.db, a.ID))

	f.gw.setStatus(res.OrderID, "expire")
	view, err := f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentExpire, view.Status)

	assert.Equal(t, 10, testutil.Stock(t, f.db, a.ID))
	assert.Equal(t, 5, testutil.Stock(t, f.db, b.ID))
	cart := f.cart(t, cartID)
	assert.False(t, cart.Paid)
	assert.Equal(t, domain.CartOpen, cart.Status)

	// expire to cancel is failure to failure: stock is not released twice.
	f.gw.setStatus(res.OrderID, "cancel")
	_, err = f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 10, testutil.Stock(t, f.db, a.ID))

	_, err = f.carts.AddItem(ctx, owner, a.ID, 1)
	assert.NoError(t, err, "released cart is editable again")
}

func TestCheckStatus_SettlementAfterReleaseLeavesCartAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID, a, b := seedCart(t, f, "g-late")
	owner := domain.GuestOwner("g-late")

	res, err := f.payment.PayForCart(ctx, CartPaymentInput{
		Owner: owner, CartID: cartID, Method: "bank", Params: payment.Params{Bank: "bri"},
	})
	require.NoError(t, err)

	f.gw.setStatus(res.OrderID, "expire")
	_, err = f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)

	view, err := f.carts.AddItem(ctx, owner, a.ID, 3)
	require.NoError(t, err)
	require.Equal(t, cartID, view.ID)

	f.gw.setStatus(res.OrderID, "settlement")
	status, err := f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSettlement, status.Status)

	cart := f.cart(t, cartID)
	assert.False(t, cart.Paid)
	assert.Equal(t, domain.CartOpen, cart.Status)
	assert.Nil(t, cart.FulfillmentStatus)
	assert.Equal(t, 10, testutil.Stock(t, f.db, a.ID))
	assert.Equal(t, 5, testutil.Stock(t, f.db, b.ID))

	_, err = f.carts.AddItem(ctx, owner, b.ID, 1)
	assert.NoError(t, err, "cart stays editable")
}

func TestCheckStatus_LocalMethodsSkipGateway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID, _, _ := seedCart(t, f, "g-manual")

	res, err := f.payment.PayForCart(ctx, CartPaymentInput{
		Owner: domain.GuestOwner("g-manual"), CartID: cartID, Method: "manual", Params: payment.Params{Bank: "bca"},
	})
	require.NoError(t, err)

	view, err := f.payment.CheckStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, view.Status)
	assert.Equal(t, "manual-transfer", view.Method)
	assert.Zero(t, f.gw.statusCalls)
}

func TestConfirmPayment_ManualTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID, a, _ := seedCart(t, f, "g-confirm")

	res, err := f.payment.PayForCart(ctx, CartPaymentInput{
		Owner: domain.GuestOwner("g-confirm"), CartID: cartID, Method: "manual", Params: payment.Params{Bank: "bni"},
	})
	require.NoError(t, err)

	view, err := f.payment.ConfirmPayment(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSettlement, view.Status)
	assert.Equal(t, 1, f.pub.count("payment_status_changed"))

	stored, err := f.repo.GetPaymentByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.NotNil(t, stored.PaidAt)

	cart := f.cart(t, cartID)
	assert.True(t, cart.Paid)
	assert.Equal(t, domain.CartPaid, cart.Status)
	require.NotNil(t, cart.FulfillmentStatus)
	assert.Equal(t, domain.FulfillmentAwaitingStaff, *cart.FulfillmentStatus)
	assert.Equal(t, 8, testutil.Stock(t, f.db, a.ID))

	_, err = f.payment.ConfirmPayment(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.payment.CancelPayment(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Zero(t, f.gw.statusCalls)
}

func TestCancelPayment_ReleasesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID, a, b := seedCart(t, f, "g-cancel")
	owner := domain.GuestOwner("g-cancel")

	res, err := f.payment.PayForCart(ctx, CartPaymentInput{
		Owner: owner, CartID: cartID, Method: "manual", Params: payment.Params{Bank: "mandiri"},
	})
	require.NoError(t, err)
	require.Equal(t, 8, testutil.Stock(t, f.db, a.ID))

	_, err = f.carts.AddItem(ctx, owner, a.ID, 1)
	require.ErrorIs(t, err, domain.ErrInvalidState, "cart is locked while the transfer is pending")

	view, err := f.payment.CancelPayment(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancel, view.Status)
	assert.Equal(t, 10, testutil.Stock(t, f.db, a.ID))
	assert.Equal(t, 5, testutil.Stock(t, f.db, b.ID))

	cart := f.cart(t, cartID)
	assert.False(t, cart.Paid)
	assert.Equal(t, domain.CartOpen, cart.Status)

	_, err = f.carts.AddItem(ctx, owner, a.ID, 1)
	assert.NoError(t, err)

	_, err = f.payment.ConfirmPayment(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestConfirmPayment_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.payment.ConfirmPayment(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.payment.CancelPayment(ctx, "CART-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	user := testutil.CreateUser(t, f.db, "Tono", "pengguna")
	res, err := f.payment.CreatePayment(ctx, DirectPaymentInput{UserID: user.ID, Amount: decimal.NewFromInt(4000), Method: "qris"})
	require.NoError(t, err)

	_, err = f.payment.ConfirmPayment(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "gateway methods settle through CheckStatus")
	_, err = f.payment.CancelPayment(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	stored, err := f.repo.GetPaymentByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status)
}

func TestCheckStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.payment.CheckStatus(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.payment.CheckStatus(ctx, "ORD-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	user := testutil.CreateUser(t, f.db, "Eko", "pengguna")
	res, err := f.payment.CreatePayment(ctx, DirectPaymentInput{UserID: user.ID, Amount: decimal.NewFromInt(3000), Method: "qris"})
	require.NoError(t, err)

	// No status known at the gateway yet.
	_, err = f.payment.CheckStatus(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrPaymentGateway)

	f.gw.chargeErr = errGatewayDown
	f.gw.setStatus(res.OrderID, "settlement")
	_, err = f.payment.CheckStatus(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrPaymentGateway)

	stored, err := f.repo.GetPaymentByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status)
}

func TestGetPayment_UsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "Rina", "pengguna")

	res, err := f.payment.CreatePayment(ctx, DirectPaymentInput{UserID: user.ID, Amount: decimal.NewFromInt(2500), Method: "qris"})
	require.NoError(t, err)

	view, err := f.payment.GetPayment(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, view.OrderID)
	assert.Equal(t, "2500", view.Amount.String())

	// Evict and read through the database.
	f.cache.mu.Lock()
	delete(f.cache.views, res.OrderID)
	f.cache.mu.Unlock()

	view, err = f.payment.GetPayment(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurposeDirect, view.Purpose)
	assert.Contains(t, f.cache.views, res.OrderID)

	_, err = f.payment.GetPayment(ctx, "ORD-nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "Alice", "pengguna")
	bob := testutil.CreateUser(t, f.db, "Bob", "pengguna")

	for i := 0; i < 3; i++ {
		_, err := f.payment.CreatePayment(ctx, DirectPaymentInput{UserID: alice.ID, Amount: decimal.NewFromInt(1000), Method: "qris"})
		require.NoError(t, err)
	}
	_, err := f.payment.CreatePayment(ctx, DirectPaymentInput{UserID: bob.ID, Amount: decimal.NewFromInt(1000), Method: "qris"})
	require.NoError(t, err)

	list, err := f.payment.SearchTransactions(ctx, alice.ID, "", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Items, 3)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 100, list.Size)

	_, err = f.payment.SearchTransactions(ctx, 0, "", 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	f.payment.Index = nil
	_, err = f.payment.SearchTransactions(ctx, alice.ID, "", 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
