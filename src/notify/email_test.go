package notify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"clinic-ops/src/models"
	"clinic-ops/src/notify"
)

type senderMock struct {
	mock.Mock
}

func (m *senderMock) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

type notifierMock struct {
	mock.Mock
	done chan struct{}
}

func (m *notifierMock) NotifyAlerts(ctx context.Context, alerts []models.Alert) error {
	defer close(m.done)
	args := m.Called(alerts)
	return args.Error(0)
}

var sample = []models.Alert{
	{Type: models.AlertOutOfStock, Severity: models.SeverityCritical, Message: "Gauze is out of stock"},
	{Type: models.AlertExpiryCritical, Severity: models.SeverityCritical, Message: "Insulin expires in 5 days (2025-03-15)"},
}

func TestEmailNotifier(t *testing.T) {
	t.Run("SC1: Sends one message with every alert", func(t *testing.T) {
		sender := &senderMock{}
		var sent *gomail.Message
		sender.On("DialAndSend", mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(0).([]*gomail.Message)[0]
		}).Return(nil).Once()

		n := &notify.EmailNotifier{
			Config: notify.EmailConfig{From: "alerts@clinic.test", To: []string{"pharmacy@clinic.test"}, Clinic: "Sunrise Clinic"},
			Sender: sender,
		}
		require.NoError(t, n.NotifyAlerts(context.Background(), sample))
		sender.AssertExpectations(t)

		require.NotNil(t, sent)
		assert.Equal(t, []string{"[Sunrise Clinic] 2 new inventory alert(s)"}, sent.GetHeader("Subject"))
		assert.Equal(t, []string{"pharmacy@clinic.test"}, sent.GetHeader("To"))

		var buf bytes.Buffer
		_, err := sent.WriteTo(&buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Gauze is out of stock")
	})

	t.Run("SC2: Nothing to send without alerts or recipients", func(t *testing.T) {
		sender := &senderMock{}
		n := &notify.EmailNotifier{Config: notify.EmailConfig{To: []string{"a@clinic.test"}}, Sender: sender}
		require.NoError(t, n.NotifyAlerts(context.Background(), nil))

		n.Config.To = nil
		require.NoError(t, n.NotifyAlerts(context.Background(), sample))
		sender.AssertNotCalled(t, "DialAndSend", mock.Anything)
	})

	t.Run("SC3: Transport errors are returned", func(t *testing.T) {
		sender := &senderMock{}
		sender.On("DialAndSend", mock.Anything).Return(errors.New("dial tcp: refused"))
		n := &notify.EmailNotifier{Config: notify.EmailConfig{To: []string{"a@clinic.test"}}, Sender: sender}
		assert.Error(t, n.NotifyAlerts(context.Background(), sample))
	})
}

func TestSubjectAndBody(t *testing.T) {
	assert.Equal(t, "[Clinic] 2 new inventory alert(s)", notify.Subject("", sample))
	assert.Equal(t,
		"[CRITICAL] OUT_OF_STOCK: Gauze is out of stock\n[CRITICAL] EXPIRY_CRITICAL: Insulin expires in 5 days (2025-03-15)\n",
		notify.Body(sample))
}

func TestAsyncDeliversInBackground(t *testing.T) {
	next := &notifierMock{done: make(chan struct{})}
	next.On("NotifyAlerts", mock.Anything).Return(errors.New("smtp down"))

	a := &notify.Async{Next: next, Timeout: time.Second}
	alerts := append([]models.Alert(nil), sample...)
	require.NoError(t, a.NotifyAlerts(context.Background(), alerts))
	alerts[0].Message = "changed after the call"

	select {
	case <-next.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
	next.AssertCalled(t, "NotifyAlerts", mock.MatchedBy(func(batch []models.Alert) bool {
		return len(batch) == 2 && batch[0].Message == "Gauze is out of stock"
	}))
}
