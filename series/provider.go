// Package series extracts vegetation-index time series for sampled
// plots from a remote imagery statistics API and stores them locally.
package series

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/verdantlab/phenosample/phenomodel"
)

// Provider yields index observations for a single plot. Implementations
// own all retrieval mechanics; callers only see tabular data.
type Provider interface {
	Fetch(ctx context.Context, pt phenomodel.SamplePoint, index phenomodel.VegIndex, from, to time.Time) ([]phenomodel.Observation, error)
}

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func ClientConfigDefault() ClientConfig {
	return ClientConfig{
		Timeout: 30 * time.Second,
	}
}

// StatsClient talks to a Sentinel statistics style JSON API: one request
// per plot, index and date range, aggregated server side.
type StatsClient struct {
	cfg    ClientConfig
	client *fasthttp.Client
}

func NewStatsClient(cfg ClientConfig) *StatsClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = ClientConfigDefault().Timeout
	}
	return &StatsClient{
		cfg: cfg,
		client: &fasthttp.Client{
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
}

type statsRequest struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Index string  `json:"index"`
	From  string  `json:"from"`
	To    string  `json:"to"`
}

type statsResponse struct {
	Observations []struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	} `json:"observations"`
}

const dateLayout = "2006-01-02"

func (c *StatsClient) Fetch(ctx context.Context, pt phenomodel.SamplePoint, index phenomodel.VegIndex, from, to time.Time) ([]phenomodel.Observation, error) {
	lon, lat := pt.LonLat()
	body, err := json.Marshal(statsRequest{
		Lon:   lon,
		Lat:   lat,
		Index: string(index),
		From:  from.Format(dateLayout),
		To:    to.Format(dateLayout),
	})
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + "/v1/statistics")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.cfg.Timeout); err != nil {
		return nil, fmt.Errorf("statistics request for plot %d: %w", pt.ID, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("statistics request for plot %d: status %d", pt.ID, resp.StatusCode())
	}

	var parsed statsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("parsing statistics response: %w", err)
	}

	obs := make([]phenomodel.Observation, 0, len(parsed.Observations))
	for _, o := range parsed.Observations {
		date, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing observation date %q: %w", o.Date, err)
		}
		obs = append(obs, phenomodel.Observation{Date: date, Value: o.Value})
	}
	return obs, nil
}
