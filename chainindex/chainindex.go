// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chainindex

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gobject/event"
	"github.com/blinklabs-io/gobject/governance"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultPollInterval = 10 * time.Second

var ErrTransactionNotFound = governance.ErrTransactionNotFound

// rpcClient is the subset of the btcd RPC client used by the chain index
type rpcClient interface {
	GetRawTransactionVerbose(txHash *chainhash.Hash) (*btcjson.TxRawResult, error)
	GetBlockCount() (int64, error)
	GetBlockHeaderVerbose(blockHash *chainhash.Hash) (*btcjson.GetBlockHeaderVerboseResult, error)
	GetBestBlockHash() (*chainhash.Hash, error)
	Shutdown()
}

type ChainIndexConfig struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Host         string
	User         string
	Pass         string
	TLS          bool
	PollInterval time.Duration
}

// Client is a governance.ChainIndex backed by a node's JSON-RPC interface.
// When started it also polls the chain tip and publishes a chain tip event
// whenever the best block changes.
type Client struct {
	rpc        rpcClient
	metrics    *chainIndexMetrics
	pollTicker *time.Ticker
	stopCh     chan struct{}
	config     ChainIndexConfig
	lastTip    chainhash.Hash
	wg         sync.WaitGroup
	mu         sync.Mutex
}

var _ governance.ChainIndex = (*Client)(nil)

func NewClient(cfg ChainIndexConfig) (*Client, error) {
	rpc, err := rpcclient.New(
		&rpcclient.ConnConfig{
			Host:         cfg.Host,
			User:         cfg.User,
			Pass:         cfg.Pass,
			HTTPPostMode: true,
			DisableTLS:   !cfg.TLS,
		},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create RPC client: %w", err)
	}
	return newClient(cfg, rpc), nil
}

func newClient(cfg ChainIndexConfig, rpc rpcClient) *Client {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	c := &Client{
		rpc:    rpc,
		config: cfg,
	}
	if cfg.PromRegistry != nil {
		c.metrics = newChainIndexMetrics(cfg.PromRegistry)
	}
	return c
}

func (c *Client) FetchTransaction(
	hash chainhash.Hash,
) (*wire.MsgTx, *chainhash.Hash, error) {
	result, err := c.rpc.GetRawTransactionVerbose(&hash)
	c.metrics.request("getrawtransaction", err)
	if err != nil {
		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCNoTxInfo {
			return nil, nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, hash)
		}
		return nil, nil, fmt.Errorf("getrawtransaction %s: %w", hash, err)
	}
	txBytes, err := hex.DecodeString(result.Hex)
	if err != nil {
		return nil, nil, fmt.Errorf("decode transaction %s: %w", hash, err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(txBytes)); err != nil {
		return nil, nil, fmt.Errorf("decode transaction %s: %w", hash, err)
	}
	if result.BlockHash == "" {
		return tx, nil, nil
	}
	blockHash, err := chainhash.NewHashFromStr(result.BlockHash)
	if err != nil {
		return nil, nil, fmt.Errorf("decode block hash: %w", err)
	}
	return tx, blockHash, nil
}

// InstantConfirmationCount always returns 0 because instant send locks are
// not exposed over RPC
func (c *Client) InstantConfirmationCount(hash chainhash.Hash) int {
	return 0
}

func (c *Client) ChainTipHeight() (int32, error) {
	count, err := c.rpc.GetBlockCount()
	c.metrics.request("getblockcount", err)
	if err != nil {
		return 0, fmt.Errorf("getblockcount: %w", err)
	}
	return int32(count), nil // #nosec G115
}

func (c *Client) BlockHeight(blockHash chainhash.Hash) (int32, bool) {
	header, err := c.rpc.GetBlockHeaderVerbose(&blockHash)
	c.metrics.request("getblockheader", err)
	if err != nil {
		c.config.Logger.Debug(
			fmt.Sprintf("getblockheader %s: %s", blockHash, err),
			"component", "chainindex",
		)
		return 0, false
	}
	// Blocks off the active chain report negative confirmations
	if header.Confirmations < 0 {
		return 0, false
	}
	return header.Height, true
}

// Start begins polling the chain tip
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollTicker != nil {
		return errors.New("chain index already started")
	}
	ticker := time.NewTicker(c.config.PollInterval)
	stopCh := make(chan struct{})
	c.pollTicker = ticker
	c.stopCh = stopCh
	c.wg.Add(1)
	go func(t *time.Ticker, stop <-chan struct{}) {
		defer c.wg.Done()
		defer t.Stop()
		c.pollTip()
		for {
			select {
			case <-t.C:
				c.pollTip()
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}(ticker, stopCh)
	return nil
}

// Stop ends tip polling
func (c *Client) Stop() {
	c.mu.Lock()
	if c.pollTicker != nil {
		c.pollTicker.Stop()
		close(c.stopCh)
		c.pollTicker = nil
		c.stopCh = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Close stops polling and shuts down the RPC client
func (c *Client) Close() {
	c.Stop()
	c.rpc.Shutdown()
}

func (c *Client) pollTip() {
	bestHash, err := c.rpc.GetBestBlockHash()
	c.metrics.request("getbestblockhash", err)
	if err != nil {
		c.config.Logger.Warn(
			fmt.Sprintf("failed to fetch chain tip: %s", err),
			"component", "chainindex",
		)
		return
	}
	if *bestHash == c.lastTip {
		return
	}
	header, err := c.rpc.GetBlockHeaderVerbose(bestHash)
	c.metrics.request("getblockheader", err)
	if err != nil {
		c.config.Logger.Warn(
			fmt.Sprintf("failed to fetch chain tip header: %s", err),
			"component", "chainindex",
		)
		return
	}
	c.lastTip = *bestHash
	c.metrics.setTipHeight(header.Height)
	c.config.Logger.Debug(
		fmt.Sprintf("chain tip %s at height %d", bestHash, header.Height),
		"component", "chainindex",
	)
	if c.config.EventBus != nil {
		c.config.EventBus.Publish(
			event.ChainTipEventType,
			event.NewEvent(
				event.ChainTipEventType,
				event.ChainTipEvent{
					BlockHash: *bestHash,
					Height:    header.Height,
				},
			),
		)
	}
}
