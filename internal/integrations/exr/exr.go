// Package exr fetches the reference exchange-rate table from an external
// XML feed. The feed is a flat document of Rate elements quoted against the
// home currency:
//
//	<RateTable base="KRW" date="2024-05-01">
//	    <Rate currency="USD" name="미국 달러" flag="🇺🇸">1350.45</Rate>
//	    ...
//	</RateTable>
package exr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mango0422/hwanbee-bank/internal/models"
)

// Client retrieves rate tables from the configured feed URL.
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new rate feed client
func NewClient(url string, log *logrus.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// FetchRates downloads and parses the current rate table.
func (c *Client) FetchRates(ctx context.Context) ([]models.ExchangeRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Rate feed response: %s", string(body))

	return parseRateTable(body)
}

// parseRateTable extracts the rate entries from a feed document.
func parseRateTable(raw []byte) ([]models.ExchangeRate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	elements := doc.FindElements("//RateTable/Rate")
	if len(elements) == 0 {
		return nil, fmt.Errorf("no rates found in feed document")
	}

	rates := make([]models.ExchangeRate, 0, len(elements))
	for _, el := range elements {
		currency := el.SelectAttrValue("currency", "")
		if currency == "" {
			return nil, fmt.Errorf("rate element missing currency attribute")
		}
		rate, err := decimal.NewFromString(el.Text())
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate for %s: %w", currency, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("non-positive rate for %s", currency)
		}
		rates = append(rates, models.ExchangeRate{
			Currency: currency,
			Rate:     rate,
			Name:     el.SelectAttrValue("name", currency),
			Flag:     el.SelectAttrValue("flag", ""),
		})
	}
	return rates, nil
}
