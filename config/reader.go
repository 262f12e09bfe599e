package config

import (
	"bytes"
	"context"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/localplanner/logging"
)

// Read reads a config from the given file, substituting environment variables first.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Fields missing from the input keep their default value. Comments and trailing commas are
// accepted.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read Config")
	}
	var raw map[string]interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "failed to process Config")
	}
	cfg.ConfigFilePath = originalPath

	if err := cfg.Validate(rootPath); err != nil {
		return nil, err
	}
	logger.CDebugw(ctx, "read config", "path", originalPath, "observers", cfg.SafetyObservers)
	return &cfg, nil
}
