package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "AAPL,EURUSD", r.URL.Query().Get("symbols"))
		fmt.Fprint(w, `{
			"code": 0,
			"message": "ok",
			"result": {
				"quotes": [
					{"symbol": "AAPL", "price": "150.25", "volume": "1200", "prevClose": "149.90", "timestamp": 1748874600000},
					{"symbol": "EURUSD", "price": "1.0842", "volume": "0", "timestamp": 1748874600000}
				]
			}
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	quotes, err := c.GetQuotes(context.Background(), []string{"AAPL", "EURUSD"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "150.25", quotes[0].Price)
	assert.Equal(t, "149.90", quotes[0].PrevClose)
	assert.Equal(t, int64(1748874600000), quotes[0].Timestamp)
}

func TestGetQuotes_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": 10001, "message": "rate limit exceeded", "result": null}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.GetQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGetQuotes_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestGetQuotes_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.GetQuotes(ctx, []string{"AAPL"})
	assert.Error(t, err)
}
