// Package oci is a minimal client for the OCI compute control plane: it signs
// every request itself and covers exactly the operations needed to hunt for
// instance capacity (create, list, availability domains).
package oci

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gammadia/ampere/cache"
	"github.com/gammadia/ampere/config"
	"github.com/gammadia/ampere/namegen"
	"github.com/gammadia/ampere/waiter"
	"github.com/samber/lo"
)

const (
	apiVersion = "20160918"

	availabilityDomainsCacheKey = "availability-domains"

	requestTimeout = 10 * time.Second
)

// Options configures a Client. Config is mandatory; every other collaborator
// is optional and replaced by a no-op (cache, waiter) or a default (HTTP
// client, logger, clock) when absent, so call sites stay unconditional.
type Options struct {
	Config *config.Config

	Cache      cache.Cache
	Waiter     waiter.Waiter
	HTTPClient *http.Client
	Logger     *slog.Logger
	Clock      func() time.Time

	// ComputeEndpoint and IdentityEndpoint override the regional defaults,
	// mostly useful to point the client at a mock server.
	ComputeEndpoint  string
	IdentityEndpoint string
}

// Client executes signed calls against the provider.
//
// Operations are synchronous and block until the transport returns; the only
// cross-call state is the waiter's armed timestamp.
type Client struct {
	config *config.Config
	signer *Signer
	http   *http.Client
	cache  cache.Cache
	waiter waiter.Waiter
	logger *slog.Logger
	clock  func() time.Time

	computeBase  string
	identityBase string
}

func NewClient(options Options) (*Client, error) {
	cfg := options.Config

	signer, err := NewSigner(cfg.TenancyID, cfg.UserID, cfg.Fingerprint, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	if options.Clock != nil {
		signer.now = options.Clock
	}

	client := &Client{
		config: cfg,
		signer: signer,
		http:   options.HTTPClient,
		cache:  options.Cache,
		waiter: options.Waiter,
		logger: options.Logger,
		clock:  options.Clock,

		computeBase:  options.ComputeEndpoint,
		identityBase: options.IdentityEndpoint,
	}

	if client.http == nil {
		client.http = &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 1 {
					return errors.New("stopped after one redirect")
				}
				return nil
			},
		}
	}
	if client.cache == nil {
		client.cache = cache.Noop{}
	}
	if client.waiter == nil {
		client.waiter = waiter.Noop{}
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	if client.clock == nil {
		client.clock = time.Now
	}
	if client.computeBase == "" {
		client.computeBase = fmt.Sprintf("https://iaas.%s.oraclecloud.com/%s", cfg.Region, apiVersion)
	}
	if client.identityBase == "" {
		client.identityBase = fmt.Sprintf("https://identity.%s.oraclecloud.com/%s", cfg.Region, apiVersion)
	}

	return client, nil
}

// CreateInstance attempts to launch one instance of the given shape in the
// given availability domain.
//
// The waiter is consulted first: inside the cooldown window the call fails
// with a *RateLimitedError before any network traffic; an elapsed window is
// cleared and the attempt proceeds. A throttle response from the provider
// arms the waiter (when one is configured) and is converted into a
// *RateLimitedError; any other failure propagates unchanged.
func (c *Client) CreateInstance(ctx context.Context, shape, sshPublicKey, availabilityDomain string) (*Instance, error) {
	if c.waiter.IsTooEarly() {
		remaining := c.waiter.SecondsRemaining()
		c.logger.Debug("Skipping creation attempt, still in cooldown", "secondsRemaining", remaining)
		return nil, &RateLimitedError{RetryIn: time.Duration(remaining) * time.Second}
	}
	c.waiter.Remove()

	details := createInstanceDetails{
		AvailabilityDomain: availabilityDomain,
		CompartmentID:      c.config.TenancyID,
		DisplayName:        fmt.Sprintf("%s-%s", namegen.Get(), c.clock().Format("20060102-1504")),
		Shape:              shape,
		SourceDetails:      c.config.SourceDetails(),
		CreateVnicDetails: createVnicDetails{
			AssignPublicIp:         true,
			AssignPrivateDnsRecord: true,
			SubnetID:               c.config.SubnetID,
		},
		AgentConfig: agentConfig{
			PluginsConfig: []pluginConfig{
				{Name: "Compute Instance Monitoring", DesiredState: "DISABLED"},
			},
		},
		AvailabilityConfig: availabilityConfig{RecoveryAction: "RESTORE_INSTANCE"},
		InstanceOptions:    instanceOptions{AreLegacyImdsEndpointsDisabled: false},
		Metadata:           map[string]string{"ssh_authorized_keys": sshPublicKey},
	}
	if IsFlexShape(shape) {
		details.ShapeConfig = &ShapeConfig{Ocpus: c.config.Ocpus, MemoryInGBs: c.config.MemoryInGBs}
	}

	c.logger.Info("Attempting to create instance",
		"shape", shape, "availabilityDomain", availabilityDomain, "displayName", details.DisplayName)

	data, err := c.call(ctx, http.MethodPost, c.computeBase+"/instances", lo.Must(json.Marshal(details)), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.TooManyRequests() && c.waiter.IsConfigured() {
			c.waiter.Enable()
			c.logger.Warn("Provider throttled instance creation, backing off",
				"secondsRemaining", c.waiter.SecondsRemaining())
			return nil, &RateLimitedError{
				RetryIn: time.Duration(c.waiter.SecondsRemaining()) * time.Second,
				Err:     apiErr,
			}
		}
		return nil, err
	}

	var instance Instance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &instance, nil
}

// ListInstances returns the compartment's instances, in all lifecycle states.
// A single page is fetched; at the scale this tool operates at, the provider
// returns everything in one.
func (c *Client) ListInstances(ctx context.Context) ([]Instance, error) {
	data, err := c.call(ctx, http.MethodGet, c.computeBase+"/instances", nil, url.Values{
		"compartmentId": {c.config.TenancyID},
	})
	if err != nil {
		return nil, err
	}

	var instances []Instance
	if err := json.Unmarshal(data, &instances); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return instances, nil
}

// ListAvailabilityDomains returns the region's availability domains. Domains
// never change for a given tenancy/region, so when caching is enabled the
// memoized value is served without a network call.
func (c *Client) ListAvailabilityDomains(ctx context.Context) ([]AvailabilityDomain, error) {
	if c.config.CacheAvailabilityDomains {
		if raw, ok := c.cache.Get(availabilityDomainsCacheKey); ok {
			var domains []AvailabilityDomain
			if err := json.Unmarshal(raw, &domains); err == nil {
				return domains, nil
			}
			// corrupted entry, fall through to the network
		}
	}

	data, err := c.call(ctx, http.MethodGet, c.identityBase+"/availabilityDomains", nil, url.Values{
		"compartmentId": {c.config.TenancyID},
	})
	if err != nil {
		return nil, err
	}

	var domains []AvailabilityDomain
	if err := json.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if c.config.CacheAvailabilityDomains {
		c.cache.Set(availabilityDomainsCacheKey, data)
	}
	return domains, nil
}

// call executes one signed request and returns the raw response body.
// Non-2xx responses become an *APIError carrying the status and body text.
func (c *Client) call(ctx context.Context, method, rawURL string, body []byte, query url.Values) ([]byte, error) {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	contentType := ""
	if len(body) > 0 {
		contentType = "application/json"
	}
	headers, err := c.signer.Sign(method, rawURL, body, contentType)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for _, header := range headers {
		req.Header.Set(header.Name, header.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("API call", "method", method, "url", rawURL, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
