package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/villagemap/internal/adapters/httpclient"
	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
	"github.com/samirrijal/villagemap/internal/pkg/obs"
	"github.com/samirrijal/villagemap/internal/pkg/telemetry"
)

// Nominatim implements ports.ReverseGeocoder against a Nominatim
// compatible /reverse endpoint.
type Nominatim struct {
	baseURL string
	client  *httpclient.Client
	logger  *slog.Logger
}

// NewNominatim creates a reverse geocoder. Nominatim's usage policy
// requires an identifying User-Agent.
func NewNominatim(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger, opts ...httpclient.Option) *Nominatim {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]httpclient.Option{
		httpclient.WithHeader("User-Agent", userAgent),
		httpclient.WithRetry(2, 250*time.Millisecond),
	}, opts...)
	return &Nominatim{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.New(timeout, opts...),
		logger:  logger,
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Road    string `json:"road"`
		Village string `json:"village"`
		Hamlet  string `json:"hamlet"`
		Town    string `json:"town"`
	} `json:"address"`
}

// Reverse resolves p to an address.
func (n *Nominatim) Reverse(ctx context.Context, p orb.Point) (addr *domain.Address, err error) {
	ctx, span := telemetry.Tracer("geocode").Start(ctx, "nominatim.Reverse")
	defer span.End()
	defer obs.Time(ctx, n.logger, "nominatim.reverse")(&err)

	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues("nominatim").Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.ProviderRequests.WithLabelValues("nominatim", result).Inc()
	}()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat(), 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon(), 'f', 6, 64))
	q.Set("zoom", "17")

	var resp nominatimResponse
	if err := n.client.GetJSON(ctx, n.baseURL+"/reverse?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("%w: nominatim: %v", domain.ErrNetworkUnavailable, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: nominatim: %s", domain.ErrNotFound, resp.Error)
	}

	village := resp.Address.Village
	if village == "" {
		village = resp.Address.Hamlet
	}
	if village == "" {
		village = resp.Address.Town
	}
	return &domain.Address{
		DisplayName: resp.DisplayName,
		Road:        resp.Address.Road,
		Village:     village,
	}, nil
}
