package invoke

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/uabidotfun/antigravity-manager/internal/model"
)

// Call dispatches a command and decodes the loose result into T. A nil
// result (204 / empty body) yields T's zero value. Call is the typed
// boundary the dispatch layer itself does not impose: the bag stays generic
// so the route table can stay data-driven, and each call site picks its
// shape here.
func Call[T any](ctx context.Context, d *Dispatcher, command string, args Args) (T, error) {
	var out T
	res, err := d.Dispatch(ctx, command, args)
	if err != nil || res == nil {
		return out, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, fmt.Errorf("build decoder for %s: %w", command, err)
	}
	if err := dec.Decode(res); err != nil {
		return out, fmt.Errorf("decode %s result: %w", command, err)
	}
	return out, nil
}

// Client wraps a Dispatcher with typed request/response pairs for the
// account command surface.
type Client struct {
	d *Dispatcher
}

func NewClient(d *Dispatcher) *Client {
	return &Client{d: d}
}

// Dispatcher exposes the underlying dispatcher for raw calls.
func (c *Client) Dispatcher() *Dispatcher {
	return c.d
}

func (c *Client) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return Call[[]model.Account](ctx, c.d, CmdListAccounts, nil)
}

func (c *Client) GetCurrentAccount(ctx context.Context) (model.Account, error) {
	return Call[model.Account](ctx, c.d, CmdGetCurrentAccount, nil)
}

func (c *Client) AddAccount(ctx context.Context, email, refreshToken string) (model.Account, error) {
	return Call[model.Account](ctx, c.d, CmdAddAccount, Args{
		"email":        email,
		"refreshToken": refreshToken,
	})
}

func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	_, err := c.d.Dispatch(ctx, CmdDeleteAccount, Args{"accountId": accountID})
	return err
}

func (c *Client) DeleteAccounts(ctx context.Context, accountIDs []string) error {
	_, err := c.d.Dispatch(ctx, CmdDeleteAccounts, Args{"accountIds": accountIDs})
	return err
}

func (c *Client) ReorderAccounts(ctx context.Context, accountIDs []string) error {
	_, err := c.d.Dispatch(ctx, CmdReorderAccounts, Args{"accountIds": accountIDs})
	return err
}

func (c *Client) SwitchAccount(ctx context.Context, accountID string) error {
	_, err := c.d.Dispatch(ctx, CmdSwitchAccount, Args{"accountId": accountID})
	return err
}

func (c *Client) UpdateAccountLabel(ctx context.Context, accountID, label string) error {
	_, err := c.d.Dispatch(ctx, CmdUpdateAccountLabel, Args{
		"accountId": accountID,
		"label":     label,
	})
	return err
}

func (c *Client) ExportAccounts(ctx context.Context) ([]model.Account, error) {
	return Call[[]model.Account](ctx, c.d, CmdExportAccounts, nil)
}

func (c *Client) FetchAccountQuota(ctx context.Context, accountID string) (model.QuotaData, error) {
	return Call[model.QuotaData](ctx, c.d, CmdFetchAccountQuota, Args{"accountId": accountID})
}

func (c *Client) RefreshAllQuotas(ctx context.Context) (model.RefreshStats, error) {
	return Call[model.RefreshStats](ctx, c.d, CmdRefreshAllQuotas, nil)
}

func (c *Client) GetDeviceProfiles(ctx context.Context) ([]model.DeviceProfile, error) {
	return Call[[]model.DeviceProfile](ctx, c.d, CmdGetDeviceProfiles, nil)
}

func (c *Client) PreviewGenerateProfile(ctx context.Context) (model.DeviceProfile, error) {
	return Call[model.DeviceProfile](ctx, c.d, CmdPreviewGenerateProfile, nil)
}

func (c *Client) BindDeviceProfile(ctx context.Context, accountID, profileID string) error {
	_, err := c.d.Dispatch(ctx, CmdBindDeviceProfile, Args{
		"accountId": accountID,
		"profileId": profileID,
	})
	return err
}

func (c *Client) ApplyDeviceProfile(ctx context.Context, profile model.DeviceProfile) error {
	_, err := c.d.Dispatch(ctx, CmdApplyDeviceProfile, Args{"request": profile})
	return err
}

func (c *Client) RestoreOriginalDevice(ctx context.Context) error {
	_, err := c.d.Dispatch(ctx, CmdRestoreOriginalDevice, nil)
	return err
}

func (c *Client) ListDeviceVersions(ctx context.Context) ([]model.DeviceVersion, error) {
	return Call[[]model.DeviceVersion](ctx, c.d, CmdListDeviceVersions, nil)
}

func (c *Client) RestoreDeviceVersion(ctx context.Context, versionID string) error {
	_, err := c.d.Dispatch(ctx, CmdRestoreDeviceVersion, Args{"versionId": versionID})
	return err
}

func (c *Client) DeleteDeviceVersion(ctx context.Context, versionID string) error {
	_, err := c.d.Dispatch(ctx, CmdDeleteDeviceVersion, Args{"versionId": versionID})
	return err
}

func (c *Client) LoadConfig(ctx context.Context) (model.AppConfig, error) {
	return Call[model.AppConfig](ctx, c.d, CmdLoadConfig, nil)
}

func (c *Client) SaveConfig(ctx context.Context, cfg model.AppConfig) error {
	_, err := c.d.Dispatch(ctx, CmdSaveConfig, Args{"request": cfg})
	return err
}

func (c *Client) ToggleProxyStatus(ctx context.Context) (model.ProxyStatus, error) {
	return Call[model.ProxyStatus](ctx, c.d, CmdToggleProxyStatus, nil)
}

func (c *Client) CheckForUpdates(ctx context.Context) (model.UpdateInfo, error) {
	return Call[model.UpdateInfo](ctx, c.d, CmdCheckForUpdates, nil)
}
