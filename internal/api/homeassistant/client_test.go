package homeassistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "token", time.Second, 2*time.Second)
}

func TestGetEntityState(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/states/sensor.enyaq_battery_level":
			w.Write([]byte(`{"entity_id":"sensor.enyaq_battery_level","state":"72.5","attributes":{"unit_of_measurement":"%"}}`))
		case "/api/states/sensor.unavailable":
			w.Write([]byte(`{"entity_id":"sensor.unavailable","state":"unavailable"}`))
		case "/api/states/sensor.garbage":
			w.Write([]byte(`<html>`))
		case "/api/states/sensor.broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	t.Run("numeric state", func(t *testing.T) {
		state, err := client.GetEntityState(ctx, "sensor.enyaq_battery_level")
		require.NoError(t, err)
		v, err := state.Float()
		require.NoError(t, err)
		assert.Equal(t, 72.5, v)
		assert.Equal(t, "%", state.Attributes.UnitOfMeasurement)
	})

	t.Run("non numeric state", func(t *testing.T) {
		state, err := client.GetEntityState(ctx, "sensor.unavailable")
		require.NoError(t, err)
		_, err = state.Float()
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetEntityState(ctx, "sensor.missing")
		var nf *EntityNotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "sensor.missing", nf.EntityID)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := client.GetEntityState(ctx, "sensor.garbage")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.GetEntityState(ctx, "sensor.broken")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestUnauthenticated(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetEntityState(context.Background(), "sensor.enyaq_odometer")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, client.TestConnection(context.Background()), ErrUnauthenticated)

	noToken := NewClient("http://127.0.0.1:1", "", 0, 0)
	_, err = noToken.GetEntityState(context.Background(), "sensor.enyaq_odometer")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTestConnection(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/", r.URL.Path)
		w.Write([]byte(`{"message":"API running."}`))
	})
	assert.NoError(t, client.TestConnection(context.Background()))
}

func TestInvalidEndpoint(t *testing.T) {
	for _, url := range []string{"", "ha.local:8123", "ftp://ha.local"} {
		client := NewClient(url, "token", 0, 0)
		_, err := client.GetEntityState(context.Background(), "sensor.x")
		assert.ErrorIs(t, err, ErrInvalidEndpoint, url)
	}
}

func TestUnreachable(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client := NewClient(url, "token", time.Second, time.Second)
		_, err := client.GetEntityState(context.Background(), "sensor.x")
		assert.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("request timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(block)

		client := NewClient(srv.URL, "token", time.Second, 100*time.Millisecond)
		_, err := client.GetEntityState(context.Background(), "sensor.x")
		assert.ErrorIs(t, err, ErrUnreachable)
	})
}

func TestBaseURLTrimmed(t *testing.T) {
	assert.Equal(t, "http://ha.local:8123", NewClient(" http://ha.local:8123// ", "t", 0, 0).BaseURL())
}
