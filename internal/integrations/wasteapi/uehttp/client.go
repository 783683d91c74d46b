package uehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/PickupBox/internal/integrations/wasteapi"
	"github.com/BearBump/PickupBox/internal/models"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://app.uddevallaenergi.se"

const (
	addressPath    = "/wp-json/app/v1/address"
	nextPickupPath = "/wp-json/app/v1/next-pickup-web"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// plantNumber accepts both 42 and "42".
type plantNumber int64

func (p *plantNumber) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return errors.Wrap(err, "plant_number")
	}
	*p = plantNumber(n)
	return nil
}

type addressResp struct {
	PlantNumber plantNumber `json:"plant_number"`
	Address     string      `json:"address"`
}

type pickupResp struct {
	Type       string `json:"type"`
	PickupDate string `json:"pickup_date"`
}

func (c *Client) LookupAddress(ctx context.Context, address string) ([]wasteapi.Address, error) {
	q := url.Values{}
	q.Set("address", address)

	var body []addressResp
	if err := c.getJSON(ctx, addressPath, q, &body); err != nil {
		return nil, err
	}

	out := make([]wasteapi.Address, 0, len(body))
	for _, a := range body {
		out = append(out, wasteapi.Address{
			PlantNumber: models.LocationID(a.PlantNumber),
			Address:     a.Address,
		})
	}
	return out, nil
}

func (c *Client) NextPickups(ctx context.Context, plant models.LocationID) ([]wasteapi.Pickup, error) {
	q := url.Values{}
	q.Set("plant_number", strconv.FormatInt(int64(plant), 10))

	var body []pickupResp
	if err := c.getJSON(ctx, nextPickupPath, q, &body); err != nil {
		return nil, err
	}

	out := make([]wasteapi.Pickup, 0, len(body))
	for _, p := range body {
		out = append(out, wasteapi.Pickup{Type: p.Type, PickupDate: p.PickupDate})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("uddevalla energi http %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	// The address endpoint answers an unmatched address with an empty body.
	if len(bytes.TrimSpace(b)) == 0 {
		b = []byte("[]")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}
