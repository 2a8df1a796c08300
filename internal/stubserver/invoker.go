package stubserver

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/uabidotfun/antigravity-manager/internal/invoke"
	"github.com/uabidotfun/antigravity-manager/internal/model"
)

// Invoker exposes the fixture set as a native invocation primitive, so a
// dispatcher in native mode serves the same data the HTTP stub does. The
// native surface also carries a few host-only commands the route table
// never maps, mirroring the open-ended native convention.
func (s *Server) Invoker() invoke.Invoker {
	f := s.fixtures
	r := invoke.NewRegistry()

	r.Register(invoke.CmdListAccounts, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.ListAccounts(), nil
	})
	r.Register(invoke.CmdGetCurrentAccount, func(ctx context.Context, args invoke.Args) (any, error) {
		acct, ok := f.CurrentAccount()
		if !ok {
			return nil, fmt.Errorf("no current account")
		}
		return acct, nil
	})
	r.Register(invoke.CmdAddAccount, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.AddAccount(strArg(args, "email"))
	})
	r.Register(invoke.CmdDeleteAccount, func(ctx context.Context, args invoke.Args) (any, error) {
		if !f.DeleteAccount(strArg(args, "accountId")) {
			return nil, fmt.Errorf("account not found")
		}
		return nil, nil
	})
	r.Register(invoke.CmdDeleteAccounts, func(ctx context.Context, args invoke.Args) (any, error) {
		return map[string]int{"deleted": f.DeleteAccounts(strSliceArg(args, "accountIds"))}, nil
	})
	r.Register(invoke.CmdReorderAccounts, func(ctx context.Context, args invoke.Args) (any, error) {
		f.ReorderAccounts(strSliceArg(args, "accountIds"))
		return nil, nil
	})
	r.Register(invoke.CmdSwitchAccount, func(ctx context.Context, args invoke.Args) (any, error) {
		acct, ok := f.SwitchAccount(strArg(args, "accountId"))
		if !ok {
			return nil, fmt.Errorf("account not found")
		}
		return acct, nil
	})
	r.Register(invoke.CmdUpdateAccountLabel, func(ctx context.Context, args invoke.Args) (any, error) {
		if !f.UpdateLabel(strArg(args, "accountId"), strArg(args, "label")) {
			return nil, fmt.Errorf("account not found")
		}
		return nil, nil
	})
	r.Register(invoke.CmdExportAccounts, func(ctx context.Context, args invoke.Args) (any, error) {
		return map[string]any{"accounts": f.ListAccounts()}, nil
	})
	r.Register(invoke.CmdFetchAccountQuota, func(ctx context.Context, args invoke.Args) (any, error) {
		quota, ok := f.Quota(strArg(args, "accountId"))
		if !ok {
			return nil, fmt.Errorf("account not found")
		}
		return quota, nil
	})
	r.Register(invoke.CmdRefreshAllQuotas, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.RefreshAllQuotas(), nil
	})
	r.Register(invoke.CmdGetDeviceProfiles, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.DeviceProfiles(), nil
	})
	r.Register(invoke.CmdPreviewGenerateProfile, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.PreviewProfile(), nil
	})
	r.Register(invoke.CmdBindDeviceProfile, func(ctx context.Context, args invoke.Args) (any, error) {
		if !f.BindProfile(strArg(args, "accountId"), strArg(args, "profileId")) {
			return nil, fmt.Errorf("account not found")
		}
		return nil, nil
	})
	r.Register(invoke.CmdApplyDeviceProfile, func(ctx context.Context, args invoke.Args) (any, error) {
		var profile model.DeviceProfile
		if err := decodeArgs(args["request"], &profile); err != nil {
			return nil, err
		}
		f.ApplyProfile(profile)
		return nil, nil
	})
	r.Register(invoke.CmdRestoreOriginalDevice, func(ctx context.Context, args invoke.Args) (any, error) {
		f.RestoreOriginal()
		return nil, nil
	})
	r.Register(invoke.CmdListDeviceVersions, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.DeviceVersions(), nil
	})
	r.Register(invoke.CmdRestoreDeviceVersion, func(ctx context.Context, args invoke.Args) (any, error) {
		if !f.RestoreVersion(strArg(args, "versionId")) {
			return nil, fmt.Errorf("version not found")
		}
		return nil, nil
	})
	r.Register(invoke.CmdDeleteDeviceVersion, func(ctx context.Context, args invoke.Args) (any, error) {
		if !f.DeleteVersion(strArg(args, "versionId")) {
			return nil, fmt.Errorf("version not found")
		}
		return nil, nil
	})
	r.Register(invoke.CmdLoadConfig, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.AppConfig(), nil
	})
	r.Register(invoke.CmdSaveConfig, func(ctx context.Context, args invoke.Args) (any, error) {
		var cfg model.AppConfig
		if err := decodeArgs(args["request"], &cfg); err != nil {
			return nil, err
		}
		f.SetAppConfig(cfg)
		return nil, nil
	})
	r.Register(invoke.CmdToggleProxyStatus, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.ToggleProxy(), nil
	})
	r.Register(invoke.CmdCheckForUpdates, func(ctx context.Context, args invoke.Args) (any, error) {
		return f.UpdateInfo(), nil
	})

	// Host-only commands with no HTTP route.
	r.Register("get_data_dir_path", func(ctx context.Context, args invoke.Args) (any, error) {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		return dir + "/.abv", nil
	})
	r.Register("clear_log_cache", func(ctx context.Context, args invoke.Args) (any, error) {
		return nil, nil
	})

	return r
}

func strArg(args invoke.Args, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

func strSliceArg(args invoke.Args, key string) []string {
	if args == nil {
		return nil
	}
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// decodeArgs converts a loose "request" payload into a typed value. Native
// callers may pass either a typed struct or a plain map.
func decodeArgs(in, out any) error {
	if in == nil {
		return fmt.Errorf("missing request payload")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
