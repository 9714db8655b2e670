package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientUnconfigured(t *testing.T) {
	assert.Nil(t, NewClient("", "123", false, nil))
	assert.Nil(t, NewClient("token", "", false, nil))
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	assert.NoError(t, c.SendMessage(context.Background(), "hi"))
	assert.NoError(t, c.SendReport(context.Background(), "caption", []byte{1}))
}

func TestDebugModeSkipsAPI(t *testing.T) {
	c := NewClient("token", "42", true, nil)
	c.APIBase = "http://127.0.0.1:1" // would fail if called

	assert.NoError(t, c.SendMessage(context.Background(), "hi"))
	assert.NoError(t, c.SendReport(context.Background(), "caption", []byte{1}))
}

func TestSendMessage(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient("token", "42", false, nil)
	c.APIBase = srv.URL

	require.NoError(t, c.SendMessage(context.Background(), "<b>saved</b>"))
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Equal(t, "<b>saved</b>", got.Text)
}

func TestSendReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "QC progress", r.FormValue("caption"))

		f, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "qc_report.png", header.Filename)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient("token", "42", false, nil)
	c.APIBase = srv.URL

	require.NoError(t, c.SendReport(context.Background(), "QC progress", []byte{0x89, 'P', 'N', 'G'}))
}

func TestAPIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("token", "42", false, nil)
	c.APIBase = srv.URL

	err := c.SendMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
