package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatai-api/pkg/market/exchanges/restclient"
)

func TestCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"BTCUSDT","lastPrice":"64123.5"}]}}`))
	}))
	defer srv.Close()

	price, err := New(restclient.Endpoint{BaseURL: srv.URL}).CurrentPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 64123.5, price)
}

func TestCurrentPriceVenueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":10001,"retMsg":"params error","result":{}}`))
	}))
	defer srv.Close()

	_, err := New(restclient.Endpoint{BaseURL: srv.URL}).CurrentPrice(context.Background(), "NOPE")
	assert.ErrorContains(t, err, "params error")
}

func TestCandlesSortedAndTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("interval"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"retCode":0,"result":{"list":[
			["1700000120000","3","3.5","2.5","3.2","100","0"],
			["1700000060000","2","2.5","1.5","2.2","90","0"],
			["1700000000000","1","1.5","0.5","1.2","80","0"]
		]}}`))
	}))
	defer srv.Close()

	candles, err := New(restclient.Endpoint{BaseURL: srv.URL}).Candles(context.Background(), "BTCUSDT", "1m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.EqualValues(t, 1700000060000, candles[0].OpenTime)
	assert.EqualValues(t, 1700000120000, candles[1].OpenTime)
	assert.Equal(t, 3.2, candles[1].Close)
	assert.Equal(t, 100.0, candles[1].Volume)
}
