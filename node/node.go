package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/safwentrabelsi/delegate-notifier/config"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "node")

// ErrNotFound is returned when the node knows no wallet under the given identifier.
var ErrNotFound = errors.New("wallet not found")

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads wallets from the node public API.
type Client struct {
	url           string
	client        HttpClient
	retryAttempts int
}

func NewClient(cfg *config.NodeConfig) *Client {
	return &Client{
		url:           strings.TrimRight(cfg.GetURL(), "/"),
		retryAttempts: cfg.GetRetryAttempts(),
		client: &http.Client{
			Timeout: time.Duration(cfg.GetTimeout()) * time.Second,
		},
	}
}

type walletResponse struct {
	Data wallet `json:"data"`
}

type wallet struct {
	Address    string          `json:"address"`
	PublicKey  string          `json:"publicKey"`
	Balance    decimal.Decimal `json:"balance"`
	Attributes struct {
		Vote     string `json:"vote"`
		Delegate *struct {
			Username string `json:"username"`
		} `json:"delegate"`
	} `json:"attributes"`
}

func (w wallet) toAccount() *types.Account {
	account := &types.Account{
		Address:   w.Address,
		PublicKey: w.PublicKey,
		Balance:   w.Balance,
		Vote:      w.Attributes.Vote,
	}
	if w.Attributes.Delegate != nil {
		account.Username = w.Attributes.Delegate.Username
	}
	return account
}

func (c *Client) HasByPublicKey(ctx context.Context, publicKey string) (bool, error) {
	account, err := c.getWallet(ctx, publicKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return account.PublicKey == publicKey, nil
}

func (c *Client) FindByPublicKey(ctx context.Context, publicKey string) (*types.Account, error) {
	return c.getWallet(ctx, publicKey)
}

func (c *Client) FindByUsername(ctx context.Context, username string) (*types.Account, error) {
	return c.getWallet(ctx, username)
}

// FindByAddress returns an empty cold wallet for addresses the node has never seen.
func (c *Client) FindByAddress(ctx context.Context, address string) (*types.Account, error) {
	account, err := c.getWallet(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return &types.Account{Address: address, Balance: decimal.Zero}, nil
	}
	return account, err
}

func (c *Client) getWallet(ctx context.Context, id string) (*types.Account, error) {
	endpoint := fmt.Sprintf("%s/api/wallets/%s", c.url, url.PathEscape(id))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.executeRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", id, err)
	}
	defer resp.Body.Close()

	var walletResp walletResponse
	if err := json.NewDecoder(resp.Body).Decode(&walletResp); err != nil {
		return nil, fmt.Errorf("failed to decode wallet %s: %w", id, err)
	}
	return walletResp.Data.toAccount(), nil
}

func (c *Client) executeRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	return retry.DoWithData(
		func() (*http.Response, error) {
			req = req.WithContext(ctx)
			resp, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}

			switch {
			case resp.StatusCode == http.StatusNotFound:
				resp.Body.Close()
				return nil, retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode != http.StatusOK:
				resp.Body.Close()
				return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
			}
			return resp, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(max(c.retryAttempts, 1))),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Errorf("failed to fetch wallet err: %v, retrying...", err)
		}),
	)
}
