/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"asset-market-go/internal/models"
	"asset-market-go/internal/retry"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

// Compile-time check: *RPCClient must satisfy Client.
var _ Client = (*RPCClient)(nil)

// RPCClient speaks the node's JSON-RPC interface. Reads are retried on
// transport failures; submissions are sent exactly once.
type RPCClient struct {
	rpc          *rpc.Client
	limiter      *rate.Limiter
	readRetry    *retry.Config
	pollInterval time.Duration
	fee          int64
}

func NewRPCClient(ctx context.Context, cfg models.ChainConfig) (*RPCClient, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("chain config requires RPC_HOST and RPC_PORT")
	}
	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	zap.L().Info("Connecting to ledger node", zap.String("endpoint", endpoint))
	return dial(ctx, endpoint, cfg, &httpClient)
}

func dial(ctx context.Context, endpoint string, cfg models.ChainConfig, httpClient *http.Client) (*RPCClient, error) {
	opts := []rpc.ClientOption{rpc.WithHTTPClient(httpClient)}
	if cfg.User != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.User + ":" + cfg.Password))
		opts = append(opts, rpc.WithHeader("Authorization", "Basic "+creds))
	}

	client, err := rpc.DialOptions(ctx, endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to dial ledger node: %w", err)
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	readRetry := retry.DefaultConfig()
	if cfg.ReadRetries > 0 {
		readRetry.MaxAttempts = cfg.ReadRetries
	}
	readRetry.Retryable = IsTransport

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &RPCClient{
		rpc:          client,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		readRetry:    readRetry,
		pollInterval: pollInterval,
		fee:          cfg.PaymentFee,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (c *RPCClient) Close() {
	c.rpc.Close()
}

// submit sends a state-changing call once
func (c *RPCClient) submit(ctx context.Context, op string, result any, method string, args ...any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return notSent(classify(op, err))
	}
	return classify(op, c.rpc.CallContext(ctx, result, method, args...))
}

// read sends an idempotent call, retrying transport failures
func (c *RPCClient) read(ctx context.Context, op string, result any, method string, args ...any) error {
	return retry.Do(ctx, op, c.readRetry, func(ctx context.Context, _ int) error {
		return c.submit(ctx, op, result, method, args...)
	})
}

type createAssetParams struct {
	Name           string `json:"name"`
	Updatable      bool   `json:"updatable"`
	IsRoot         bool   `json:"is_root"`
	RootName       string `json:"root_name"`
	IsUnique       bool   `json:"is_unique"`
	DecimalPoint   int    `json:"decimalpoint"`
	ReferenceHash  string `json:"referenceHash"`
	MaxMintCount   int    `json:"maxMintCount"`
	Type           int    `json:"type"`
	TargetAddress  string `json:"targetAddress"`
	IssueFrequency int    `json:"issueFrequency"`
	Amount         int    `json:"amount"`
	OwnerAddress   string `json:"ownerAddress"`
}

func (c *RPCClient) InitiateAssetCreation(ctx context.Context, meta AssetMetadata) (string, error) {
	params := createAssetParams{
		Name:           meta.Name,
		Updatable:      meta.Updatable,
		IsRoot:         true,
		IsUnique:       true,
		DecimalPoint:   meta.DecimalPoint,
		ReferenceHash:  meta.ReferenceHash,
		MaxMintCount:   meta.MaxMintCount,
		Type:           meta.Type,
		TargetAddress:  meta.TargetAddress,
		IssueFrequency: meta.IssueFrequency,
		Amount:         1,
		OwnerAddress:   meta.OwnerAddress,
	}

	var txId string
	if err := c.submit(ctx, "createasset", &txId, "createasset", params); err != nil {
		return "", err
	}
	zap.L().Info("Asset creation submitted", zap.String("name", meta.Name), zap.String("txid", txId))
	return txId, nil
}

func (c *RPCClient) MintCreatedAsset(ctx context.Context, creationTxId string) (string, error) {
	var txId string
	if err := c.submit(ctx, "mintasset", &txId, "mintasset", creationTxId); err != nil {
		return "", err
	}
	zap.L().Info("Asset mint submitted", zap.String("creation_txid", creationTxId), zap.String("txid", txId))
	return txId, nil
}

type rawTransaction struct {
	TxId          string `json:"txid"`
	Confirmations int    `json:"confirmations"`
}

// WaitTransaction polls until txId reaches the requested depth. Unknown
// transactions and transport failures keep polling; ctx bounds the wait.
func (c *RPCClient) WaitTransaction(ctx context.Context, txId string, confirmations int) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var tx rawTransaction
		err := c.submit(ctx, "getrawtransaction", &tx, "getrawtransaction", txId, 1)
		switch {
		case err == nil && tx.Confirmations >= confirmations:
			zap.L().Debug("Transaction confirmed", zap.String("txid", txId), zap.Int("confirmations", tx.Confirmations))
			return nil
		case err == nil, IsNotFound(err), IsTransport(err):
			if err != nil {
				zap.L().Debug("Transaction not yet visible", zap.String("txid", txId), zap.Error(err))
			}
		case KindOf(err) == KindTimeout:
			return &Error{Kind: KindTimeout, Op: "waittransaction", TxId: txId, Err: err}
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return &Error{Kind: KindTimeout, Op: "waittransaction", TxId: txId, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

type assetDetailsResponse struct {
	AssetId           string `json:"Asset_id"`
	AssetName         string `json:"Asset_name"`
	CreationTxId      string `json:"Txid"`
	Owner             string `json:"Owner"`
	ReferenceHash     string `json:"ReferenceHash"`
	MintCount         int64  `json:"MintCount"`
	CirculatingSupply int64  `json:"Circulating_supply"`
}

func (c *RPCClient) GetAssetDetailsByName(ctx context.Context, name string) (*AssetDetails, error) {
	var resp assetDetailsResponse
	err := c.read(ctx, "getassetdetailsbyname", &resp, "getassetdetailsbyname", name)
	if err != nil {
		var chainErr *Error
		if errors.As(err, &chainErr) && chainErr.Code == codeInvalidParameter {
			return nil, &Error{Kind: KindNotFound, Op: chainErr.Op, Code: chainErr.Code, Err: chainErr.Err}
		}
		return nil, err
	}
	return &AssetDetails{
		AssetId:           resp.AssetId,
		Name:              resp.AssetName,
		CreationTxId:      resp.CreationTxId,
		OwnerAddress:      resp.Owner,
		ReferenceHash:     resp.ReferenceHash,
		MintCount:         resp.MintCount,
		CirculatingSupply: resp.CirculatingSupply,
	}, nil
}

func (c *RPCClient) TransferAsset(ctx context.Context, req TransferAssetRequest) (string, error) {
	if req.Amount <= 0 {
		req.Amount = 1
	}

	var txId string
	if req.SigningKey == "" {
		err := c.submit(ctx, "sendasset", &txId, "sendasset", req.AssetId, req.Amount, req.ToAddress)
		if err != nil {
			return "", err
		}
	} else {
		assetUtxos, err := c.addressUtxos(ctx, req.FromAddress, req.AssetName)
		if err != nil {
			return "", err
		}
		if len(assetUtxos) == 0 {
			return "", &Error{Kind: KindRejected, Op: "sendasset", Err: fmt.Errorf("%s holds no %s", req.FromAddress, req.AssetName)}
		}
		coinUtxos, err := c.addressUtxos(ctx, req.FromAddress, "")
		if err != nil {
			return "", err
		}
		feeInputs, feeTotal, err := selectUtxos(coinUtxos, c.fee)
		if err != nil {
			return "", err
		}

		outputs := map[string]any{req.ToAddress: assetOutput(req.AssetId, req.Amount)}
		if change := feeTotal - c.fee; change > 0 {
			outputs[req.FromAddress] = formatCoins(change)
		}
		txId, err = c.signAndSend(ctx, "sendasset", append(assetUtxos, feeInputs...), outputs, req.SigningKey)
		if err != nil {
			return "", err
		}
	}

	zap.L().Info("Asset transfer submitted",
		zap.String("asset_id", req.AssetId),
		zap.String("from", req.FromAddress),
		zap.String("to", req.ToAddress),
		zap.String("txid", txId))
	return txId, nil
}

func (c *RPCClient) SendPayment(ctx context.Context, req PaymentRequest) (string, error) {
	if req.Amount <= 0 {
		return "", &Error{Kind: KindRejected, Op: "sendpayment", Err: fmt.Errorf("amount must be positive, got %d", req.Amount)}
	}

	utxos, err := c.addressUtxos(ctx, req.FromAddress, "")
	if err != nil {
		return "", err
	}
	inputs, total, err := selectUtxos(utxos, req.Amount+c.fee)
	if err != nil {
		return "", err
	}

	outputs := map[string]any{req.ToAddress: formatCoins(req.Amount)}
	if change := total - req.Amount - c.fee; change > 0 {
		outputs[req.FromAddress] = formatCoins(change)
	}

	txId, err := c.signAndSend(ctx, "sendpayment", inputs, outputs, req.SigningKey)
	if err != nil {
		return "", err
	}
	zap.L().Info("Payment submitted",
		zap.String("from", req.FromAddress),
		zap.String("to", req.ToAddress),
		zap.Int64("amount", req.Amount),
		zap.String("txid", txId))
	return txId, nil
}

func (c *RPCClient) ListAddressesHoldingAsset(ctx context.Context, name string) (map[string]int64, error) {
	var resp map[string]decimal.Decimal
	if err := c.read(ctx, "listaddressesbyasset", &resp, "listaddressesbyasset", name); err != nil {
		return nil, err
	}
	holders := make(map[string]int64, len(resp))
	for addr, amount := range resp {
		if amount.IsPositive() {
			holders[addr] = amount.IntPart()
		}
	}
	return holders, nil
}

type addressQuery struct {
	Addresses []string `json:"addresses"`
	Asset     string   `json:"asset,omitempty"`
}

type addressBalance struct {
	Balance  int64 `json:"balance"`
	Received int64 `json:"received"`
}

func (c *RPCClient) GetAddressBalance(ctx context.Context, address string) (int64, error) {
	var resp addressBalance
	if err := c.read(ctx, "getaddressbalance", &resp, "getaddressbalance", addressQuery{Addresses: []string{address}}); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

type addressUtxo struct {
	Address     string `json:"address"`
	TxId        string `json:"txid"`
	OutputIndex int    `json:"outputIndex"`
	Satoshis    int64  `json:"satoshis"`
}

type txInput struct {
	TxId string `json:"txid"`
	Vout int    `json:"vout"`
}

func (c *RPCClient) addressUtxos(ctx context.Context, address, asset string) ([]addressUtxo, error) {
	var utxos []addressUtxo
	if err := c.read(ctx, "getaddressutxos", &utxos, "getaddressutxos", addressQuery{Addresses: []string{address}, Asset: asset}); err != nil {
		return nil, notSent(err)
	}
	return utxos, nil
}

type signResult struct {
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
}

func (c *RPCClient) signAndSend(ctx context.Context, op string, utxos []addressUtxo, outputs map[string]any, signingKey string) (string, error) {
	inputs := make([]txInput, len(utxos))
	for i, u := range utxos {
		inputs[i] = txInput{TxId: u.TxId, Vout: u.OutputIndex}
	}

	var rawHex string
	if err := c.submit(ctx, op, &rawHex, "createrawtransaction", inputs, outputs); err != nil {
		return "", notSent(err)
	}

	var signed signResult
	if err := c.submit(ctx, op, &signed, "signrawtransactionwithkey", rawHex, []string{signingKey}); err != nil {
		return "", notSent(err)
	}
	if !signed.Complete {
		return "", &Error{Kind: KindRejected, Op: op, Err: fmt.Errorf("transaction signature incomplete")}
	}

	var txId string
	if err := c.submit(ctx, op, &txId, "sendrawtransaction", signed.Hex); err != nil {
		return "", err
	}
	return txId, nil
}

// selectUtxos picks outputs in node order until target is covered
func selectUtxos(utxos []addressUtxo, target int64) ([]addressUtxo, int64, error) {
	var (
		picked []addressUtxo
		total  int64
	)
	for _, u := range utxos {
		if total >= target {
			break
		}
		picked = append(picked, u)
		total += u.Satoshis
	}
	if total < target {
		return nil, 0, &Error{
			Kind: KindRejected,
			Op:   "selectutxos",
			Code: codeInsufficientFunds,
			Err:  fmt.Errorf("insufficient funds: have %d, need %d", total, target),
		}
	}
	return picked, total, nil
}

// assetOutput is the raw-transaction output envelope for an asset transfer
func assetOutput(assetId string, amount int64) map[string]any {
	return map[string]any{
		"transfer": map[string]int64{assetId: amount},
	}
}
