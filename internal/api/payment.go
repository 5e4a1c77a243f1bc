package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

func (c *Client) CreatePrimeOrder(ctx context.Context) (PrimeOrder, error) {
	var out PrimeOrder
	if _, err := c.sendJSON(ctx, http.MethodPost, "/payment/create-prime-order", nil, &out); err != nil {
		return PrimeOrder{}, err
	}
	return out, nil
}

func (c *Client) ActivatePrime(ctx context.Context) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/payment/activate-prime", nil, nil)
	return err
}

// PrimeStatus reports whether the current user holds Prime. The backend
// answers either a bare boolean or an object with a prime flag.
func (c *Client) PrimeStatus(ctx context.Context) (bool, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/payment/prime-status", &raw); err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil
	}
	var obj struct {
		Prime   *bool `json:"prime"`
		IsPrime *bool `json:"isPrime"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false, fmt.Errorf("decode prime status: %w", err)
	}
	switch {
	case obj.Prime != nil:
		return *obj.Prime, nil
	case obj.IsPrime != nil:
		return *obj.IsPrime, nil
	}
	return false, nil
}
