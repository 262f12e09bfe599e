package utils

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a free-form set of attributes, as found in the json config of an observer or
// planner variant.
type AttributeMap map[string]interface{}

// DecodeAttributes decodes the map into the struct pointed to by into, using json tags. Unknown
// keys are an error so typos in a config do not go unnoticed.
func DecodeAttributes(attrs AttributeMap, into interface{}) error {
	if len(attrs) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           into,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return errors.Wrap(err, "decoding attributes")
	}
	return nil
}
