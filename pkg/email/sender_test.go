package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"to"`
		DynamicTemplateData map[string]any `json:"dynamic_template_data"`
	} `json:"personalizations"`
	TemplateID string `json:"template_id"`
}

func TestSendGridSenderPostsTemplate(t *testing.T) {
	var captured capturedMail
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, sendGridMailPath, r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(config.SendgridConfig{
		APIKey:      "key",
		DefaultFrom: "payouts@voltline.test",
		BaseURL:     srv.URL + "/",
	})

	res, err := sender.Send(context.Background(), Message{
		To:         "dealer@example.com",
		ToName:     "Volt Motors",
		TemplateID: "tmpl-payout",
		Props:      map[string]any{"amount": "800.00"},
	})
	require.NoError(t, err)
	require.Equal(t, "msg-1", res.MessageID)
	require.Equal(t, "Bearer key", auth)
	require.Equal(t, "tmpl-payout", captured.TemplateID)
	require.Equal(t, "payouts@voltline.test", captured.From.Email)
	require.Len(t, captured.Personalizations, 1)
	require.Equal(t, "dealer@example.com", captured.Personalizations[0].To[0].Email)
	require.Equal(t, "Volt Motors", captured.Personalizations[0].To[0].Name)
	require.Equal(t, "800.00", captured.Personalizations[0].DynamicTemplateData["amount"])
}

func TestSendGridSenderSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	}))
	defer srv.Close()

	sender := NewSendGridSender(config.SendgridConfig{APIKey: "key", BaseURL: srv.URL})
	_, err := sender.Send(context.Background(), Message{To: "a@b.c", TemplateID: "t"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	require.True(t, statusErr.Retryable())
}

func TestSendRequiresRecipientAndTemplate(t *testing.T) {
	sender := NewSendGridSender(config.SendgridConfig{APIKey: "key"})
	_, err := sender.Send(context.Background(), Message{TemplateID: "t"})
	require.ErrorIs(t, err, ErrRecipientRequired)

	_, err = sender.Send(context.Background(), Message{To: "a@b.c"})
	require.Error(t, err)
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	_, ok := NewSender(config.SendgridConfig{}, nil).(*LogSender)
	require.True(t, ok)

	_, ok = NewSender(config.SendgridConfig{APIKey: "k"}, nil).(*SendGridSender)
	require.True(t, ok)

	res, err := NewLogSender(nil).Send(context.Background(), Message{To: "a@b.c"})
	require.NoError(t, err)
	require.NotEmpty(t, res.MessageID)
}
