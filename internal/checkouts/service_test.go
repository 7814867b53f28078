package checkouts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartrescue/cartrescue-backend/internal/carts"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
)

type fakeRecordStore struct {
	byUUID map[string]*CheckoutRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{byUUID: map[string]*CheckoutRecord{}}
}

func (f *fakeRecordStore) Upsert(_ context.Context, record *CheckoutRecord) error {
	if existing, ok := f.byUUID[record.CheckoutUUID]; ok {
		existing.UserID = record.UserID
		existing.UserEmail = record.UserEmail
		existing.CheckoutContents = record.CheckoutContents
		existing.CheckoutUpdated = record.CheckoutUpdated
		existing.CheckoutUpdatedTS = record.CheckoutUpdatedTS
		*record = *existing
		return nil
	}
	clone := *record
	f.byUUID[record.CheckoutUUID] = &clone
	return nil
}

func (f *fakeRecordStore) FindUUIDByUser(_ context.Context, userID int64, email string) (string, error) {
	var best *CheckoutRecord
	for _, record := range f.byUUID {
		if (userID > 0 && record.UserID == userID) || (email != "" && record.UserEmail == email) {
			if best == nil || record.CheckoutUpdatedTS > best.CheckoutUpdatedTS {
				best = record
			}
		}
	}
	if best == nil {
		return "", nil
	}
	return best.CheckoutUUID, nil
}

func (f *fakeRecordStore) DeleteByUUID(_ context.Context, checkoutUUID string) error {
	delete(f.byUUID, checkoutUUID)
	return nil
}

type fakeSessionStore struct {
	checkoutUUIDs map[string]string
	billingEmails map[string]string
	nonces        map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		checkoutUUIDs: map[string]string{},
		billingEmails: map[string]string{},
		nonces:        map[string]string{},
	}
}

func (f *fakeSessionStore) CheckoutUUID(_ context.Context, sessionID string) (string, error) {
	return f.checkoutUUIDs[sessionID], nil
}

func (f *fakeSessionStore) SetCheckoutUUID(_ context.Context, sessionID, checkoutUUID string) error {
	f.checkoutUUIDs[sessionID] = checkoutUUID
	return nil
}

func (f *fakeSessionStore) ClearCheckoutUUID(_ context.Context, sessionID string) error {
	delete(f.checkoutUUIDs, sessionID)
	return nil
}

func (f *fakeSessionStore) BillingEmail(_ context.Context, sessionID string) (string, error) {
	return f.billingEmails[sessionID], nil
}

func (f *fakeSessionStore) SetBillingEmail(_ context.Context, sessionID, email string) error {
	f.billingEmails[sessionID] = email
	return nil
}

func (f *fakeSessionStore) IssueGuestNonce(_ context.Context, sessionID string) (string, error) {
	f.nonces[sessionID] = "nonce-" + sessionID
	return f.nonces[sessionID], nil
}

func (f *fakeSessionStore) ConsumeGuestNonce(_ context.Context, sessionID, nonce string) (bool, error) {
	stored, ok := f.nonces[sessionID]
	if !ok || stored != nonce {
		return false, nil
	}
	delete(f.nonces, sessionID)
	return true, nil
}

type fakeCartReader struct {
	carts map[string]*carts.Cart
}

func (f *fakeCartReader) Get(_ context.Context, sessionID string) (*carts.Cart, error) {
	if cart, ok := f.carts[sessionID]; ok {
		return cart, nil
	}
	return &carts.Cart{}, nil
}

func (f *fakeCartReader) PriceCart(_ context.Context, cart *carts.Cart) (carts.Totals, error) {
	var subtotal int64
	for _, item := range cart.Items {
		subtotal += item.LineTotalCents()
	}
	return carts.Totals{SubtotalCents: subtotal, TotalCents: subtotal}, nil
}

type serviceFixture struct {
	service  *Service
	records  *fakeRecordStore
	sessions *fakeSessionStore
	cart     *fakeCartReader
}

func newFixture(t *testing.T, deleteOnEmptied bool) *serviceFixture {
	t.Helper()
	records := newFakeRecordStore()
	sessions := newFakeSessionStore()
	cart := &fakeCartReader{carts: map[string]*carts.Cart{}}
	service, err := NewService(records, sessions, cart, config.CheckoutsConfig{DeleteOnEmptied: deleteOnEmptied}, nil)
	require.NoError(t, err)
	service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &serviceFixture{service: service, records: records, sessions: sessions, cart: cart}
}

func stockCart() *carts.Cart {
	return &carts.Cart{Items: []carts.Item{{ProductID: 1, Title: "Mug", Qty: 2, PriceCents: 1200}}}
}

func TestSaveCheckoutDataCreatesRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "Buyer@Example.com"})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.NotEmpty(t, record.CheckoutUUID)
	assert.Equal(t, "buyer@example.com", record.UserEmail)
	assert.Equal(t, SnapshotVersion, record.CheckoutContents.Version)
	require.Len(t, record.CheckoutContents.Items, 1)
	assert.EqualValues(t, 2400, record.CheckoutContents.Totals.TotalCents)
	assert.Equal(t, record.CheckoutUpdated.Unix(), record.CheckoutUpdatedTS)

	// the session now owns the token and the typed email
	assert.Equal(t, record.CheckoutUUID, f.sessions.checkoutUUIDs["visitor-1"])
	assert.Equal(t, "buyer@example.com", f.sessions.billingEmails["visitor-1"])
}

func TestSaveCheckoutDataUpdatesSameRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	first, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "buyer@example.com"})
	require.NoError(t, err)

	// the second capture resolves the email from the session
	f.cart.carts["visitor-1"].Items[0].Qty = 5
	second, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.CheckoutUUID, second.CheckoutUUID)
	assert.Len(t, f.records.byUUID, 1)
	assert.EqualValues(t, 6000, second.CheckoutContents.Totals.TotalCents)
}

func TestSaveCheckoutDataEmailPrecedence(t *testing.T) {
	ctx := context.Background()

	// posted email wins over account email
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()
	record, err := f.service.SaveCheckoutData(ctx, SaveInput{
		SessionID:   "visitor-1",
		UserID:      7,
		UserEmail:   "account@example.com",
		PostedEmail: "typed@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "typed@example.com", record.UserEmail)

	// account email wins over a previously stored session email
	f = newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()
	f.sessions.billingEmails["visitor-1"] = "stored@example.com"
	record, err = f.service.SaveCheckoutData(ctx, SaveInput{
		SessionID: "visitor-1",
		UserID:    7,
		UserEmail: "account@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "account@example.com", record.UserEmail)

	// the stored session email is the fallback
	f = newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()
	f.sessions.billingEmails["visitor-1"] = "stored@example.com"
	record, err = f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	assert.Equal(t, "stored@example.com", record.UserEmail)
}

func TestSaveCheckoutDataWithoutEmailIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	// guest with a full cart but no typed, account, or stored email: nothing
	// is written, so the report never carries an uncontactable row
	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, f.records.byUUID)
	assert.Empty(t, f.sessions.checkoutUUIDs)
}

func TestSaveCheckoutDataEmptyCartDeletesRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "buyer@example.com"})
	require.NoError(t, err)

	f.cart.carts["visitor-1"] = &carts.Cart{}
	got, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotContains(t, f.records.byUUID, record.CheckoutUUID)
}

func TestSaveCheckoutDataEmptyCartKeepsRecordWhenDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.cart.carts["visitor-1"] = stockCart()

	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "buyer@example.com"})
	require.NoError(t, err)

	f.cart.carts["visitor-1"] = &carts.Cart{}
	got, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Contains(t, f.records.byUUID, record.CheckoutUUID)
}

func TestRefreshIfStartedIgnoresSessionsWithoutToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	record, err := f.service.RefreshIfStarted(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, f.records.byUUID)

	// once checkout started, cart edits refresh the row
	_, err = f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "buyer@example.com"})
	require.NoError(t, err)

	f.cart.carts["visitor-1"].Items[0].Qty = 9
	record, err = f.service.RefreshIfStarted(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.EqualValues(t, 9*1200, record.CheckoutContents.Totals.TotalCents)
}

func TestEnsureCheckoutTokenReusesPriorUserToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	f.records.byUUID["uuid-prior"] = &CheckoutRecord{
		UserID:            7,
		UserEmail:         "buyer@example.com",
		CheckoutUUID:      "uuid-prior",
		CheckoutUpdatedTS: 100,
	}

	token, err := f.service.EnsureCheckoutToken(ctx, "fresh-session", 7, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uuid-prior", token)
	assert.Equal(t, "uuid-prior", f.sessions.checkoutUUIDs["fresh-session"])
}

func TestEnsureCheckoutTokenIsStablePerSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	first, err := f.service.EnsureCheckoutToken(ctx, "visitor-1", 0, "")
	require.NoError(t, err)
	second, err := f.service.EnsureCheckoutToken(ctx, "visitor-1", 0, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCaptureGuestEmailRequiresValidNonce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	err := f.service.CaptureGuestEmail(ctx, "visitor-1", "buyer@example.com", "bogus")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	nonce, err := f.service.IssueGuestNonce(ctx, "visitor-1")
	require.NoError(t, err)

	require.NoError(t, f.service.CaptureGuestEmail(ctx, "visitor-1", " Buyer@Example.com ", nonce))
	assert.Equal(t, "buyer@example.com", f.sessions.billingEmails["visitor-1"])

	// the nonce is burned
	err = f.service.CaptureGuestEmail(ctx, "visitor-1", "buyer@example.com", nonce)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestCaptureGuestEmailPersistsCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	// without an email nothing was captured yet
	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1"})
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, f.records.byUUID)

	nonce, err := f.service.IssueGuestNonce(ctx, "visitor-1")
	require.NoError(t, err)
	require.NoError(t, f.service.CaptureGuestEmail(ctx, "visitor-1", "late@example.com", nonce))

	// the typed email made the checkout persistable: a full snapshot landed
	require.Len(t, f.records.byUUID, 1)
	for _, persisted := range f.records.byUUID {
		assert.Equal(t, "late@example.com", persisted.UserEmail)
		require.Len(t, persisted.CheckoutContents.Items, 1)
		assert.EqualValues(t, 2400, persisted.CheckoutContents.Totals.TotalCents)
	}
}

func TestCaptureGuestEmailRefreshesExistingRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "early@example.com"})
	require.NoError(t, err)
	require.NotNil(t, record)

	nonce, err := f.service.IssueGuestNonce(ctx, "visitor-1")
	require.NoError(t, err)
	require.NoError(t, f.service.CaptureGuestEmail(ctx, "visitor-1", "late@example.com", nonce))

	require.Len(t, f.records.byUUID, 1)
	reloaded := f.records.byUUID[record.CheckoutUUID]
	require.NotNil(t, reloaded)
	assert.Equal(t, "late@example.com", reloaded.UserEmail)
}

func TestClearPurchasedData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.cart.carts["visitor-1"] = stockCart()

	record, err := f.service.SaveCheckoutData(ctx, SaveInput{SessionID: "visitor-1", PostedEmail: "buyer@example.com"})
	require.NoError(t, err)

	cleared, err := f.service.ClearPurchasedData(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, record.CheckoutUUID, cleared)
	assert.NotContains(t, f.records.byUUID, record.CheckoutUUID)
	assert.NotContains(t, f.sessions.checkoutUUIDs, "visitor-1")

	// clearing a session with no record is a no-op
	cleared, err = f.service.ClearPurchasedData(ctx, "visitor-2")
	require.NoError(t, err)
	assert.Empty(t, cleared)
}
