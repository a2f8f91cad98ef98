package clients

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/pkg/circuitbreaker"
	"github.com/tailorline/settlement-api/pkg/errors"
	"github.com/tailorline/settlement-api/pkg/logger"
	"github.com/tailorline/settlement-api/pkg/retry"
)

const tokenHeader = "X-Algo-API-Token"

// AlgodClient talks to a ledger node over its REST surface. The node is an
// external collaborator: this client submits signed instructions, polls for
// confirmation and reads balances, nothing more.
type AlgodClient struct {
	baseURL     string
	apiToken    string
	httpClient  *http.Client
	logger      logger.Logger
	retryConfig *retry.RetryConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// paramsResponse is the node's suggested parameters payload
type paramsResponse struct {
	MinFee      uint64 `json:"min-fee"`
	LastRound   uint64 `json:"last-round"`
	GenesisID   string `json:"genesis-id"`
	GenesisHash string `json:"genesis-hash"`
}

// submitResponse is the node's response to a transaction submission
type submitResponse struct {
	TxID    string `json:"txId"`
	Message string `json:"message,omitempty"`
}

// pendingResponse is the node's view of a pending transaction
type pendingResponse struct {
	ConfirmedRound uint64 `json:"confirmed-round"`
	PoolError      string `json:"pool-error"`
}

// accountResponse is the node's account record
type accountResponse struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// compileResponse is the node's program compilation result; the hash is the
// address of the account governed by the program
type compileResponse struct {
	Hash   string `json:"hash"`
	Result string `json:"result"`
}

// NewAlgodClient creates a new AlgodClient instance
func NewAlgodClient(baseURL, apiToken string, logger logger.Logger) *AlgodClient {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
	}

	retryConfig := &retry.RetryConfig{
		MaxAttempts: 3,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      1.5,
			JitterFactor:    0.2,
		},
		Logger: logger,
		RetryableErrors: []error{
			errors.ErrTimeout,
			errors.ErrTemporaryFailure,
			errors.ErrServiceUnavailable,
		},
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 2,
	})

	return &AlgodClient{
		baseURL:     baseURL,
		apiToken:    apiToken,
		httpClient:  httpClient,
		logger:      logger,
		retryConfig: retryConfig,
		breaker:     breaker,
	}
}

// SuggestedParams fetches the fee and validity window for building an
// instruction
func (c *AlgodClient) SuggestedParams(ctx context.Context) (ledger.NetworkParams, error) {
	var resp paramsResponse

	err := retry.Retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/v2/transactions/params", nil, &resp)
	}, c.retryConfig)

	if err != nil {
		c.logger.Error("Failed to fetch suggested params after retries", "error", err)
		return ledger.NetworkParams{}, err
	}

	return ledger.NetworkParams{
		Fee:         resp.MinFee,
		FirstValid:  resp.LastRound,
		LastValid:   resp.LastRound + 1000,
		GenesisID:   resp.GenesisID,
		GenesisHash: resp.GenesisHash,
	}, nil
}

// Submit sends a signed instruction to the node and returns the pending
// transaction id. Submission is not retried here: the coordinator decides
// whether a retry is safe, and the node dedupes identical transactions.
func (c *AlgodClient) Submit(ctx context.Context, signed []byte) (string, error) {
	if !c.breaker.Allow() {
		c.logger.Warn("Circuit breaker open, rejecting ledger submission")
		return "", errors.NewSubmissionError("ledger node unavailable (circuit open)")
	}

	var resp submitResponse
	err := c.doJSON(ctx, http.MethodPost, "/v2/transactions", signed, &resp)

	if err != nil {
		c.breaker.Failure()
		c.logger.Error("Failed to submit transaction", "error", err)
		return "", errors.NewSubmissionError(fmt.Sprintf("submit transaction: %v", err))
	}

	c.breaker.Success()

	if resp.TxID == "" {
		return "", errors.NewSubmissionError("node returned no transaction id")
	}

	return resp.TxID, nil
}

// PendingInfo asks the node about a submitted transaction. A 404 means the
// node no longer knows the transaction, which callers see as Unknown.
func (c *AlgodClient) PendingInfo(ctx context.Context, txID string) (ledger.Confirmation, error) {
	var resp pendingResponse
	err := c.doJSON(ctx, http.MethodGet, "/v2/transactions/pending/"+txID, nil, &resp)

	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.StatusCode == http.StatusNotFound {
			return ledger.Confirmation{State: ledger.ConfirmationUnknown}, nil
		}
		return ledger.Confirmation{}, err
	}

	if resp.PoolError != "" {
		return ledger.Confirmation{State: ledger.ConfirmationUnknown, PoolError: resp.PoolError}, nil
	}

	if resp.ConfirmedRound > 0 {
		return ledger.Confirmation{
			State:          ledger.ConfirmationConfirmed,
			ConfirmedRound: resp.ConfirmedRound,
		}, nil
	}

	return ledger.Confirmation{State: ledger.ConfirmationPending}, nil
}

// AccountBalance reads the balance of a ledger account in base units
func (c *AlgodClient) AccountBalance(ctx context.Context, address string) (uint64, error) {
	var resp accountResponse

	err := retry.Retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/v2/accounts/"+address, nil, &resp)
	}, c.retryConfig)

	if err != nil {
		c.logger.Error("Failed to fetch account balance after retries",
			"error", err,
			"address", address)
		return 0, err
	}

	return resp.Amount, nil
}

// CompileEscrow compiles an escrow program on the node and returns the
// address of the account it governs
func (c *AlgodClient) CompileEscrow(ctx context.Context, source []byte) (string, error) {
	var resp compileResponse

	err := retry.Retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/v2/teal/compile", source, &resp)
	}, c.retryConfig)

	if err != nil {
		c.logger.Error("Failed to compile escrow program after retries", "error", err)
		return "", err
	}

	if resp.Hash == "" {
		return "", errors.NewInternalError("node returned no program address")
	}

	return resp.Hash, nil
}

// doJSON performs one request against the node and decodes the JSON
// response, classifying failures into the retryable taxonomy
func (c *AlgodClient) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader

	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set(tokenHeader, c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)

	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return errors.NewTimeoutError("ledger node request timed out")
		}
		return errors.NewTemporaryError(fmt.Sprintf("failed to reach ledger node: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusInternalServerError {
			return errors.NewTemporaryError(fmt.Sprintf("ledger node error: %d", resp.StatusCode))
		}

		return errors.NewAppError(
			errors.ErrInternal,
			fmt.Sprintf("ledger node returned error: %d", resp.StatusCode),
			resp.StatusCode,
			false,
		)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to parse response: %v", err))
		}
	}

	return nil
}
