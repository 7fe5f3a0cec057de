package mexc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatai-api/pkg/market/exchanges/restclient"
)

func TestMexcAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/price":
			_, _ = w.Write([]byte(`{"symbol":"DOGEUSDT","price":"0.1612"}`))
		case "/api/v3/klines":
			assert.Equal(t, "30", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[[1700000000000,"0.16","0.17","0.15","0.165","1000",1700000059999]]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := New(restclient.Endpoint{BaseURL: srv.URL, Name: "mexc-backup"})
	assert.Equal(t, "mexc-backup", p.Name())

	price, err := p.CurrentPrice(context.Background(), "DOGEUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0.1612, price)

	candles, err := p.Candles(context.Background(), "DOGEUSDT", "1m", 30)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 0.165, candles[0].Close)
}

func TestMexcMalformedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := New(restclient.Endpoint{BaseURL: srv.URL}).CurrentPrice(context.Background(), "XXX")
	assert.ErrorContains(t, err, "price unavailable")
}
