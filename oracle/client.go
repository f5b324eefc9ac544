// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package oracle connects the ledger to its external collaborators: the
// staking ledger, the identity registry and the chain height source. It
// provides an HTTP client for real deployments and in-process substitutes
// for solo mode and tests.
package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/trackmesh"
)

var ErrNot200Status = errors.New("not 200 status code")

// HeightSource reports the current chain height, used to stamp ledger calls.
type HeightSource interface {
	BlockHeight() (uint64, error)
}

// Client talks to an oracle endpoint over HTTP. It satisfies
// ledger.StakeOracle, ledger.IdentityRegistry and HeightSource.
type Client struct {
	url string
	c   *http.Client
}

// New creates a new Client with the provided URL.
func New(url string) *Client {
	return NewWithHTTP(url, http.DefaultClient)
}

func NewWithHTTP(url string, c *http.Client) *Client {
	return &Client{
		url: url,
		c:   c,
	}
}

func (c *Client) httpGET(url string) ([]byte, int, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response body: %w", err)
	}
	return responseBody, resp.StatusCode, nil
}

type stakeResponse struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// StakedAmount retrieves the externally staked amount of the given address.
func (c *Client) StakedAmount(addr trackmesh.Address) (*big.Int, error) {
	body, status, err := c.httpGET(c.url + "/stakes/" + addr.String())
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stake - %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("stake query status %d - %s - %w", status, body, ErrNot200Status)
	}

	var res stakeResponse
	if err = json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unable to unmarshal stake - %w", err)
	}
	if res.Amount == nil {
		return new(big.Int), nil
	}
	return (*big.Int)(res.Amount), nil
}

type identityResponse struct {
	DID      string `json:"did"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// VerifyDID checks the identity registry for the claimed DID. Unknown,
// inactive or miscategorized identities report ledger.DIDNotFoundError.
func (c *Client) VerifyDID(did, category string) error {
	body, status, err := c.httpGET(c.url + "/identities/" + url.PathEscape(did))
	if err != nil {
		return fmt.Errorf("unable to retrieve identity - %w", err)
	}
	if status == http.StatusNotFound {
		return &ledger.DIDNotFoundError{DID: did}
	}
	if status != http.StatusOK {
		return fmt.Errorf("identity query status %d - %s - %w", status, body, ErrNot200Status)
	}

	var res identityResponse
	if err = json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("unable to unmarshal identity - %w", err)
	}
	if !res.Active || res.Category != category {
		return &ledger.DIDNotFoundError{DID: did}
	}
	return nil
}

func (c *Client) httpPOST(url string, payload interface{}) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to marshal payload - %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(data))
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response body: %w", err)
	}
	return responseBody, resp.StatusCode, nil
}

type transferRequest struct {
	To     trackmesh.Address     `json:"to"`
	Amount *math.HexOrDecimal256 `json:"amount"`
	Denom  string                `json:"denom"`
}

// Send asks the bank service to pay out funds held by the ledger.
func (c *Client) Send(to trackmesh.Address, amount *big.Int, denom string) error {
	body, status, err := c.httpPOST(c.url+"/transfers", &transferRequest{
		To:     to,
		Amount: (*math.HexOrDecimal256)(amount),
		Denom:  denom,
	})
	if err != nil {
		return fmt.Errorf("unable to request transfer - %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("transfer status %d - %s - %w", status, body, ErrNot200Status)
	}
	return nil
}

type heightResponse struct {
	Height uint64 `json:"height"`
}

// BlockHeight retrieves the current chain height.
func (c *Client) BlockHeight() (uint64, error) {
	body, status, err := c.httpGET(c.url + "/chain/height")
	if err != nil {
		return 0, fmt.Errorf("unable to retrieve height - %w", err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("height query status %d - %s - %w", status, body, ErrNot200Status)
	}

	var res heightResponse
	if err = json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("unable to unmarshal height - %w", err)
	}
	return res.Height, nil
}
