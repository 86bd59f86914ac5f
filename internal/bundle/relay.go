package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/model"
)

// RelayClient talks to the bundle relay over JSON-RPC. The relay treats the
// transaction list as one unit if it cooperates; nothing here may be taken
// as an on-chain atomicity guarantee.
type RelayClient struct {
	url  string
	http *http.Client
}

// NewRelayClient creates a relay client for the given endpoint.
func NewRelayClient(url string, timeout time.Duration) *RelayClient {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &RelayClient{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// bundleEntry is one transaction of a relay bundle request.
type bundleEntry struct {
	Transaction      []byte   `json:"transaction"`
	SignerPublicKeys []string `json:"signer_public_keys"`
	Version          int      `json:"version"`
}

type bundleRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []bundleEntry `json:"params"`
	Tip     uint64        `json:"tip"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SendBundle submits the transaction list plus tip as a single sendBundle
// request and returns the relay-assigned bundle identifier. A transport
// failure is a retryable NetworkError; a non-2xx status, a JSON-RPC error
// object, or a response without a string result is a hard SubmissionError.
func (c *RelayClient) SendBundle(ctx context.Context, txs []*SignedTransaction, tipLamports uint64) (string, error) {
	entries := make([]bundleEntry, 0, len(txs))
	for _, tx := range txs {
		keys := make([]string, 0, len(tx.SignerKeys))
		for _, k := range tx.SignerKeys {
			keys = append(keys, k.String())
		}
		entries = append(entries, bundleEntry{
			Transaction:      tx.Raw,
			SignerPublicKeys: keys,
			Version:          0,
		})
	}

	payload := bundleRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  entries,
		Tip:     tipLamports,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &model.SubmissionError{Message: "failed to encode bundle request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/sendBundle", bytes.NewReader(body))
	if err != nil {
		return "", &model.SubmissionError{Message: "failed to build relay request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &model.NetworkError{Op: "sendBundle", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &model.SubmissionError{Message: fmt.Sprintf("relay returned HTTP %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &model.NetworkError{Op: "sendBundle", Err: err}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return "", &model.SubmissionError{Message: "malformed relay response: " + err.Error()}
	}
	if rpcResp.Error != nil {
		return "", &model.SubmissionError{Message: fmt.Sprintf("relay error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)}
	}

	var bundleID string
	if err := json.Unmarshal(rpcResp.Result, &bundleID); err != nil || bundleID == "" {
		return "", &model.SubmissionError{Message: "relay response missing bundle identifier"}
	}
	return bundleID, nil
}
