package kamis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	actionDailyPriceByCategory = "dailyPriceByCategoryList"
	// wholesale price classification
	productClsWholesale = "02"
	dateFormat          = "2006-01-02"
)

// Client fetches daily price observations from KAMIS.
type Client struct {
	log  logrus.FieldLogger
	cfg  *Config
	http *resty.Client
}

// NewClient creates a new KAMIS client
func NewClient(log logrus.FieldLogger, cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kamis configuration: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseURL)
	httpClient.SetTimeout(cfg.Timeout)

	return &Client{
		log:  log.WithField("service", "kamis"),
		cfg:  cfg,
		http: httpClient,
	}, nil
}

// FetchDailyPrices returns the raw price observations for one
// (date, category) pair. A day/category with no data yields an empty
// slice and a nil error; so does a provider-side business error, which
// is logged and swallowed. Format problems surface as ErrUpstreamFormat
// and network failures as ErrTransient.
func (c *Client) FetchDailyPrices(ctx context.Context, date time.Time, categoryCode string) ([]PriceItem, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":               actionDailyPriceByCategory,
			"p_product_cls_code":   productClsWholesale,
			"p_regday":             date.Format(dateFormat),
			"p_convert_kg_yn":      "N",
			"p_item_category_code": categoryCode,
			"p_cert_key":           c.cfg.CertKey,
			"p_cert_id":            c.cfg.CertID,
			"p_returntype":         "json",
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransient, err.Error())
	}

	return c.classify(resp, date, categoryCode)
}

func (c *Client) classify(resp *resty.Response, date time.Time, categoryCode string) ([]PriceItem, error) {
	contentType := resp.Header().Get("Content-Type")
	if strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("%w: got content type %q", ErrUpstreamFormat, contentType)
	}

	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamFormat, err.Error())
	}

	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data field", ErrUpstreamFormat)
	}

	// The no-data day comes back as the bare sentinel array ["001"].
	var sentinel []string
	if err := json.Unmarshal(raw.Data, &sentinel); err == nil {
		if len(sentinel) == 1 && sentinel[0] == noDataSentinel {
			c.log.WithFields(logrus.Fields{
				"date":     date.Format(dateFormat),
				"category": categoryCode,
			}).Debug("No price data for day/category")

			return []PriceItem{}, nil
		}

		return nil, fmt.Errorf("%w: unrecognized data sentinel %v", ErrUpstreamFormat, sentinel)
	}

	var env envelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamFormat, err.Error())
	}

	if env.ErrorCode != errorCodeSuccess {
		// Provider-side business failures are soft: log and move on so one
		// bad category does not take down the whole day.
		c.log.WithFields(logrus.Fields{
			"date":       date.Format(dateFormat),
			"category":   categoryCode,
			"error_code": env.ErrorCode,
		}).Warn("KAMIS returned business error, skipping category")

		return []PriceItem{}, nil
	}

	return env.Item, nil
}
