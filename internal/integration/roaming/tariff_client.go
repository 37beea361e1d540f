package roaming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voltbridge/voltbridge/internal/cache"
	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// TariffClient resolves the active tariff for a station from the roaming
// platform's pricing API.
type TariffClient struct {
	baseURL string
	client  *retryablehttp.Client
	log     *logger.Logger
}

func NewTariffClient(cfg *config.Configuration, log *logger.Logger) *TariffClient {
	client := retryablehttp.NewClient()
	client.RetryMax = paymentRetryMax
	client.Logger = log.GetRetryableHTTPLogger()

	return &TariffClient{
		baseURL: cfg.Payment.GatewayURL,
		client:  client,
		log:     log,
	}
}

func (c *TariffClient) Resolve(ctx context.Context, workspaceID, stationID, connectorID string, at time.Time) (tariff.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/tariffs/active?%s", c.baseURL, url.Values{
		"workspace_id": {workspaceID},
		"station_id":   {stationID},
		"connector_id": {connectorID},
		"at":           {at.UTC().Format(time.RFC3339)},
	}.Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return tariff.Snapshot{}, ierr.WithError(err).
			WithHint("Failed to build tariff request").
			Mark(ierr.ErrInternal)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return tariff.Snapshot{}, ierr.WithError(err).
			WithHint("Tariff service is unreachable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return tariff.Snapshot{}, ierr.NewError("no active tariff for station").
			WithHint("No tariff is configured for this station").
			WithReportableDetails(map[string]interface{}{
				"station_id": stationID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return tariff.Snapshot{}, ierr.NewError(fmt.Sprintf("tariff service returned status %d", resp.StatusCode)).
			WithHint("Tariff service rejected the request").
			Mark(ierr.ErrHTTPClient)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tariff.Snapshot{}, ierr.WithError(err).
			WithHint("Failed to read tariff response").
			Mark(ierr.ErrHTTPClient)
	}

	var tr tariffResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return tariff.Snapshot{}, ierr.WithError(err).
			WithHint("Tariff service returned an unparseable response").
			Mark(ierr.ErrHTTPClient)
	}

	snapshot := tariff.Snapshot{
		Version:          tariff.SnapshotVersion,
		BasePricePerKwh:  tr.BasePricePerKwh,
		PricePerMinute:   tr.PricePerMinute,
		SessionStartFee:  tr.SessionStartFee,
		IdleFeePerMinute: tr.IdleFeePerMinute,
		MsFeePercent:     tr.MsFeePercent,
		Currency:         tr.Currency,
	}.WithDefaults()

	return snapshot, snapshot.Validate()
}

// CachingTariffResolver serves resolutions from cache within the configured
// TTL. Sessions freeze their snapshot at creation, so a briefly stale tariff
// only shifts which snapshot new sessions freeze, never how old ones bill.
type CachingTariffResolver struct {
	inner tariff.Resolver
	cache cache.Cache
	ttl   time.Duration
}

func NewCachingTariffResolver(inner tariff.Resolver, c cache.Cache, ttl time.Duration) *CachingTariffResolver {
	return &CachingTariffResolver{inner: inner, cache: c, ttl: ttl}
}

func (r *CachingTariffResolver) Resolve(ctx context.Context, workspaceID, stationID, connectorID string, at time.Time) (tariff.Snapshot, error) {
	key := fmt.Sprintf("tariff:%s:%s:%s", workspaceID, stationID, connectorID)

	if raw, ok := r.cache.Get(ctx, key); ok {
		if snapshot, ok := cache.UnmarshalCacheValue[tariff.Snapshot](raw); ok {
			return *snapshot, nil
		}
	}

	snapshot, err := r.inner.Resolve(ctx, workspaceID, stationID, connectorID, at)
	if err != nil {
		return tariff.Snapshot{}, err
	}
	r.cache.Set(ctx, key, snapshot, r.ttl)
	return snapshot, nil
}
