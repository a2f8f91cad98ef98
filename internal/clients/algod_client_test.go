package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/pkg/errors"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, keyvals ...interface{}) {}
func (noopLogger) Info(msg string, keyvals ...interface{})  {}
func (noopLogger) Warn(msg string, keyvals ...interface{})  {}
func (noopLogger) Error(msg string, keyvals ...interface{}) {}

func TestAlgodClient_SuggestedParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/transactions/params", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("X-Algo-API-Token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"min-fee":1000,"last-round":500,"genesis-id":"testnet-v1.0","genesis-hash":"abc"}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "secret-token", noopLogger{})
	params, err := c.SuggestedParams(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), params.Fee)
	assert.Equal(t, uint64(500), params.FirstValid)
	assert.Equal(t, uint64(1500), params.LastValid, "validity window extends past the current round")
	assert.Equal(t, "testnet-v1.0", params.GenesisID)
}

func TestAlgodClient_SuggestedParams_RetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"min-fee":1000,"last-round":500,"genesis-id":"testnet-v1.0"}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})
	_, err := c.SuggestedParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAlgodClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/transactions", r.URL.Path)
		w.Write([]byte(`{"txId":"TX42"}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})
	txID, err := c.Submit(context.Background(), []byte(`{"txn":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "TX42", txID)
}

func TestAlgodClient_Submit_FailureIsNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"malformed"}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})
	_, err := c.Submit(context.Background(), []byte(`{}`))
	require.Error(t, err)

	assert.ErrorIs(t, err, errors.ErrSubmissionFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "submission must not be retried by the client")
}

func TestAlgodClient_Submit_CircuitOpensAfterFailures(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})

	for i := 0; i < 5; i++ {
		_, err := c.Submit(context.Background(), []byte(`{}`))
		require.Error(t, err)
	}

	// The breaker now rejects without touching the node
	before := atomic.LoadInt32(&calls)
	_, err := c.Submit(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestAlgodClient_PendingInfo(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      ledger.Confirmation
		wantError bool
	}{
		{
			name:   "confirmed",
			status: http.StatusOK,
			body:   `{"confirmed-round":77}`,
			want:   ledger.Confirmation{State: ledger.ConfirmationConfirmed, ConfirmedRound: 77},
		},
		{
			name:   "still pending",
			status: http.StatusOK,
			body:   `{"confirmed-round":0}`,
			want:   ledger.Confirmation{State: ledger.ConfirmationPending},
		},
		{
			name:   "pool error",
			status: http.StatusOK,
			body:   `{"confirmed-round":0,"pool-error":"overspend"}`,
			want:   ledger.Confirmation{State: ledger.ConfirmationUnknown, PoolError: "overspend"},
		},
		{
			name:   "unknown transaction",
			status: http.StatusNotFound,
			body:   `{"message":"transaction not found"}`,
			want:   ledger.Confirmation{State: ledger.ConfirmationUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/transactions/pending/TX1", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewAlgodClient(server.URL, "tok", noopLogger{})
			got, err := c.PendingInfo(context.Background(), "TX1")

			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlgodClient_AccountBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/accounts/ADDR1", r.URL.Path)
		w.Write([]byte(`{"address":"ADDR1","amount":250000}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})
	balance, err := c.AccountBalance(context.Background(), "ADDR1")
	require.NoError(t, err)
	assert.Equal(t, uint64(250000), balance)
}

func TestAlgodClient_CompileEscrow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/teal/compile", r.URL.Path)
		w.Write([]byte(`{"hash":"ESCROWADDR","result":"cHJvZ3JhbQ=="}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})
	addr, err := c.CompileEscrow(context.Background(), []byte("#pragma version 2"))
	require.NoError(t, err)
	assert.Equal(t, "ESCROWADDR", addr)
}

func TestAlgodClient_CompileEscrow_EmptyHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewAlgodClient(server.URL, "tok", noopLogger{})
	_, err := c.CompileEscrow(context.Background(), []byte("#pragma version 2"))
	assert.Error(t, err)
}
