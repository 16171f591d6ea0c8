package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
	"github.com/emilythestrangee/stackit/backend/internal/store/memstore"
)

type fakePusher struct {
	online map[string]bool
	sent   []realtime.Event
}

func (f *fakePusher) SendToUser(userID string, ev realtime.Event) bool {
	if !f.online[userID] {
		return false
	}
	f.sent = append(f.sent, ev)
	return true
}

type fakeRelay struct {
	online    map[string]bool
	published []string
	err       error
}

func (f *fakeRelay) Online(_ context.Context, userID string) (bool, error) {
	return f.online[userID], nil
}

func (f *fakeRelay) Publish(_ context.Context, userID string, _ realtime.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, userID)
	return nil
}

type fakeSMS struct {
	to   []string
	body []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.body = append(f.body, body)
	return nil
}

type fixture struct {
	store     *memstore.Store
	recipient *models.User
	sender    *models.User
}

func newFixture(t *testing.T, phone string) fixture {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	recipient := &models.User{Username: "alice", Email: "alice@example.com", Password: "x", Phone: phone}
	sender := &models.User{Username: "bob", Email: "bob@example.com", Password: "x"}
	require.NoError(t, st.CreateUser(ctx, recipient))
	require.NoError(t, st.CreateUser(ctx, sender))
	return fixture{store: st, recipient: recipient, sender: sender}
}

func (f fixture) notification() *models.Notification {
	return &models.Notification{
		RecipientID: f.recipient.ID,
		SenderID:    f.sender.ID,
		Type:        models.NotificationNewAnswer,
		Content:     `bob answered your question: "How do channels work?"`,
		Link:        "/questions/q1",
	}
}

func TestDispatch_PushesToConnectedRecipient(t *testing.T) {
	f := newFixture(t, "+15550001111")
	pusher := &fakePusher{online: map[string]bool{f.recipient.ID: true}}
	sms := &fakeSMS{}
	d := NewDispatcher(f.store, pusher, zerolog.Nop(), WithSMS(sms))

	require.NoError(t, d.Dispatch(context.Background(), f.notification()))

	require.Len(t, pusher.sent, 1)
	assert.Equal(t, realtime.EventNotification, pusher.sent[0].Name)
	view, ok := pusher.sent[0].Data.(models.NotificationView)
	require.True(t, ok)
	assert.Equal(t, "bob", view.Sender.Username)
	assert.Equal(t, models.NotificationNewAnswer, view.Type)
	assert.Empty(t, sms.to)

	stored, err := f.store.ListNotifications(context.Background(), f.recipient.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDispatch_OfflineRecipientIsStillStored(t *testing.T) {
	f := newFixture(t, "")
	d := NewDispatcher(f.store, &fakePusher{}, zerolog.Nop())

	require.NoError(t, d.Dispatch(context.Background(), f.notification()))

	stored, err := f.store.ListNotifications(context.Background(), f.recipient.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Read)
}

func TestDispatch_RelaysWhenOnlineElsewhere(t *testing.T) {
	f := newFixture(t, "+15550001111")
	relay := &fakeRelay{online: map[string]bool{f.recipient.ID: true}}
	sms := &fakeSMS{}
	d := NewDispatcher(f.store, &fakePusher{}, zerolog.Nop(), WithRelay(relay), WithSMS(sms))

	require.NoError(t, d.Dispatch(context.Background(), f.notification()))

	assert.Equal(t, []string{f.recipient.ID}, relay.published)
	assert.Empty(t, sms.to)
}

func TestDispatch_FallsBackToSMS(t *testing.T) {
	f := newFixture(t, "+15550001111")
	relay := &fakeRelay{online: map[string]bool{}}
	sms := &fakeSMS{}
	d := NewDispatcher(f.store, &fakePusher{}, zerolog.Nop(), WithRelay(relay), WithSMS(sms))

	require.NoError(t, d.Dispatch(context.Background(), f.notification()))

	assert.Empty(t, relay.published)
	assert.Equal(t, []string{"+15550001111"}, sms.to)
	assert.Contains(t, sms.body[0], "/questions/q1")
}

func TestDispatch_RelayFailureFallsBackToSMS(t *testing.T) {
	f := newFixture(t, "+15550001111")
	relay := &fakeRelay{online: map[string]bool{f.recipient.ID: true}, err: errors.New("redis down")}
	sms := &fakeSMS{}
	d := NewDispatcher(f.store, &fakePusher{}, zerolog.Nop(), WithRelay(relay), WithSMS(sms))

	require.NoError(t, d.Dispatch(context.Background(), f.notification()))
	assert.Len(t, sms.to, 1)
}

func TestDispatch_DeliveryFailuresAreNotReturned(t *testing.T) {
	f := newFixture(t, "+15550001111")
	d := NewDispatcher(f.store, &fakePusher{}, zerolog.Nop(), WithSMS(&fakeSMS{err: errors.New("twilio down")}))

	assert.NoError(t, d.Dispatch(context.Background(), f.notification()))
}

func TestDispatch_UnknownSenderStoresNothing(t *testing.T) {
	f := newFixture(t, "")
	pusher := &fakePusher{online: map[string]bool{f.recipient.ID: true}}
	d := NewDispatcher(f.store, pusher, zerolog.Nop())

	n := f.notification()
	n.SenderID = "ghost"
	err := d.Dispatch(context.Background(), n)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, pusher.sent)

	stored, err := f.store.ListNotifications(context.Background(), f.recipient.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

type fakeCreator struct {
	params *twilioApi.CreateMessageParams
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return &twilioApi.ApiV2010Message{}, nil
}

func TestTwilioSMS_Send(t *testing.T) {
	creator := &fakeCreator{}
	sms := &TwilioSMS{api: creator, from: "+15559990000"}

	require.NoError(t, sms.Send(context.Background(), "+15550001111", "hello"))
	require.NotNil(t, creator.params)
	assert.Equal(t, "+15550001111", *creator.params.To)
	assert.Equal(t, "+15559990000", *creator.params.From)
	assert.Equal(t, "hello", *creator.params.Body)
}
