package driveapi

import (
	"fmt"
	"runtime"
	"time"

	"github.com/imroc/req/v3"
	"github.com/vaultdrive/vaultdrive/internal/utils"
	"github.com/vaultdrive/vaultdrive/internal/version"
)

const (
	HeaderDriveVersion  = "X-Drive-Version"
	HeaderDriveDeviceId = "X-Drive-Device-Id"

	// default outbound quota, matching the drive API's published limit
	defaultThrottleCalls  = 10
	defaultThrottlePeriod = time.Second
)

var driveUserAgent = fmt.Sprintf("VaultDrive/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// DriveSDK is the client for the remote drive API. Transport-level concerns
// (auth header, retries, throttling) live here so the sync engine above it
// only sees the object contract.
type DriveSDK struct {
	client   *req.Client
	baseURL  string
	throttle *Throttle
	Objects  *ObjectsAPI
	Events   *EventsAPI
}

// Config holds the options for New.
type Config struct {
	BaseURL        string
	Token          string
	ThrottleCalls  int64         // requests per ThrottlePeriod; 0 = default
	ThrottlePeriod time.Duration // 0 = default
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}
	if c.Token == "" {
		return ErrNoAuthToken
	}
	if expired, err := TokenExpired(c.Token); err == nil && expired {
		return ErrTokenExpired
	}
	return nil
}

// New creates a new DriveSDK client.
func New(cfg *Config) (*DriveSDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	calls := cfg.ThrottleCalls
	if calls <= 0 {
		calls = defaultThrottleCalls
	}
	period := cfg.ThrottlePeriod
	if period <= 0 {
		period = defaultThrottlePeriod
	}
	throttle := NewThrottle(calls, period)

	client := req.C().
		SetBaseURL(cfg.BaseURL).
		SetCommonBearerAuthToken(cfg.Token).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetUserAgent(driveUserAgent).
		SetCommonHeader(HeaderDriveVersion, version.Version).
		SetCommonHeader(HeaderDriveDeviceId, utils.HWID).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	client.OnBeforeRequest(func(c *req.Client, r *req.Request) error {
		return throttle.Wait(r.Context())
	})

	return &DriveSDK{
		client:   client,
		baseURL:  cfg.BaseURL,
		throttle: throttle,
		Objects:  newObjectsAPI(client),
		Events:   newEventsAPI(cfg.BaseURL, cfg.Token),
	}, nil
}

// Close terminates the event feed, if connected.
func (s *DriveSDK) Close() {
	if s.Events != nil {
		s.Events.Close()
	}
}
