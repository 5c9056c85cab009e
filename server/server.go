package server

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/verdantlab/phenosample/geoio"
	"github.com/verdantlab/phenosample/phenology"
	"github.com/verdantlab/phenosample/phenomodel"
	"github.com/verdantlab/phenosample/plotindex"
	"github.com/verdantlab/phenosample/sampler"
	"github.com/verdantlab/phenosample/series"
)

const MaxBodySize = 32 * 1000 * 1000 // 32MB

const defaultNearestRadius = 5000.0 // metres

var meter = otel.Meter("github.com/verdantlab/phenosample/server")

type Deps struct {
	Set   phenomodel.SampleSet
	Plots *plotindex.Index
	Store *series.Store
}

func Run(ctx context.Context, address string, deps Deps) error {
	if err := setupTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to initialize otel metrics: %w", err)
	}

	log := slog.Default()

	metricSampleCallCount, err := meter.Int64Counter("http_sample_call_total")
	if err != nil {
		return err
	}
	metricNearestCallCount, err := meter.Int64Counter("http_nearest_call_total")
	if err != nil {
		return err
	}
	metricPhenologyCallCount, err := meter.Int64Counter("http_phenology_call_total")
	if err != nil {
		return err
	}
	metricPointsSampled, err := meter.Int64Counter("points_sampled_total")
	if err != nil {
		return err
	}

	s := &server{
		deps: deps,

		metricSampleCallCount:    metricSampleCallCount,
		metricNearestCallCount:   metricNearestCallCount,
		metricPhenologyCallCount: metricPhenologyCallCount,
		metricPointsSampled:      metricPointsSampled,
	}

	r := router.New()
	r.POST("/v1/sample", s.SampleHandler)
	r.GET("/v1/plots/nearest/{x}/{y}", s.NearestPlotHandler)
	r.POST("/v1/plots/nearest/batch", s.BatchNearestHandler)
	r.GET("/v1/phenology/{id}", s.PhenologyHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	server := &fasthttp.Server{
		ReadTimeout:        time.Second,
		MaxRequestBodySize: MaxBodySize,
		Handler:            r.Handler,
	}

	go func() {
		log.Info("Server listening", "address", address)
		if err := server.ListenAndServe(address); err != http.ErrServerClosed {
			stdlog.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	slog.Info("Server started")

	// wait cancel
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

type server struct {
	deps Deps

	metricSampleCallCount    metric.Int64Counter
	metricNearestCallCount   metric.Int64Counter
	metricPhenologyCallCount metric.Int64Counter
	metricPointsSampled      metric.Int64Counter
}

type sampleResponse struct {
	Region    string                   `json:"region"`
	Shortfall int                      `json:"shortfall"`
	Points    []phenomodel.SamplePoint `json:"points"`
}

// SampleHandler runs the generator over an uploaded AOI feature
// collection. Sampling knobs come in as query args.
func (s *server) SampleHandler(ctx *fasthttp.RequestCtx) {
	s.metricSampleCallCount.Add(ctx, 1)

	ix, err := geoio.ParseAOI(ctx.Request.Body())
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString("failed to parse aoi: " + err.Error())
		return
	}

	region := string(ctx.QueryArgs().Peek("region"))
	if region == "" {
		region = ix.Names()[0]
	}
	aoi, ok := ix.Region(region)
	if !ok {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString("unknown region: " + region)
		return
	}

	cfg := sampler.ConfigDefault()
	if v, err := strconv.Atoi(string(ctx.QueryArgs().Peek("target"))); err == nil {
		cfg.TargetCount = v
	}
	if v, err := strconv.ParseFloat(string(ctx.QueryArgs().Peek("min_distance")), 64); err == nil {
		cfg.MinDistance = v
	}
	if v, err := strconv.ParseFloat(string(ctx.QueryArgs().Peek("oversample")), 64); err == nil {
		cfg.OversampleFactor = v
	}
	if v, err := strconv.ParseInt(string(ctx.QueryArgs().Peek("seed")), 10, 64); err == nil {
		cfg.Seed = v
	}

	res, err := sampler.Generate(aoi, cfg)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString(err.Error())
		return
	}
	s.metricPointsSampled.Add(ctx, int64(len(res.Points)))

	out, err := json.Marshal(sampleResponse{
		Region:    region,
		Shortfall: res.Shortfall,
		Points:    res.Points,
	})
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(out)
}

func (s *server) NearestPlotHandler(ctx *fasthttp.RequestCtx) {
	s.metricNearestCallCount.Add(ctx, 1)

	xS := ctx.UserValue("x").(string)
	yS := ctx.UserValue("y").(string)

	x, err := strconv.ParseFloat(xS, 64)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		return
	}
	y, err := strconv.ParseFloat(yS, 64)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		return
	}

	radius := defaultNearestRadius
	if v, err := strconv.ParseFloat(string(ctx.QueryArgs().Peek("radius")), 64); err == nil {
		radius = v
	}

	p, ok := s.deps.Plots.Nearest(x, y, radius)
	if !ok {
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}

	out, err := json.Marshal(p)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(out)
}

// BatchNearestHandler resolves many coordinates in one request. The body
// is a JSON array of [x, y] pairs; the response holds one entry per
// input, null where nothing lies within the radius.
func (s *server) BatchNearestHandler(ctx *fasthttp.RequestCtx) {
	var coords [][2]float64
	if err := parsePointBatch(ctx.Request.Body(), &coords); err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString(err.Error())
		return
	}
	s.metricNearestCallCount.Add(ctx, int64(len(coords)))

	radius := defaultNearestRadius
	if v, err := strconv.ParseFloat(string(ctx.QueryArgs().Peek("radius")), 64); err == nil {
		radius = v
	}

	results := make([]*phenomodel.SamplePoint, len(coords))
	for i, c := range coords {
		if p, ok := s.deps.Plots.Nearest(c[0], c[1], radius); ok {
			point := p
			results[i] = &point
		}
	}

	out, err := json.Marshal(results)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(out)
}

type phenologyResponse struct {
	Metrics phenomodel.PhenoMetrics `json:"metrics"`
	Breaks  []phenomodel.Breakpoint `json:"breaks,omitempty"`
}

func (s *server) PhenologyHandler(ctx *fasthttp.RequestCtx) {
	s.metricPhenologyCallCount.Add(ctx, 1)

	idS := ctx.UserValue("id").(string)
	id, err := strconv.Atoi(idS)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		return
	}

	year, err := strconv.Atoi(string(ctx.QueryArgs().Peek("year")))
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString("year query arg is required")
		return
	}

	index := phenomodel.NDVI
	if v, ok := phenomodel.ParseVegIndex(string(ctx.QueryArgs().Peek("index"))); ok {
		index = v
	}

	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	ser, err := s.deps.Store.GetSeries(ctx, id, index, from, to)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString(err.Error())
		return
	}
	if len(ser.Obs) == 0 {
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}

	metrics, _, err := phenology.FitSeries(ser, year)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusUnprocessableEntity)
		ctx.Response.SetBodyString(err.Error())
		return
	}

	resp := phenologyResponse{Metrics: metrics}
	if string(ctx.QueryArgs().Peek("breaks")) == "true" {
		resp.Breaks = phenology.DetectBreaks(ser.Obs, phenology.BreakConfigDefault())
	}

	out, err := json.Marshal(resp)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(out)
}
