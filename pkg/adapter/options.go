package adapter

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeOptions decodes driver-specific string options into out, a pointer
// to a struct with mapstructure tags. Numeric and boolean fields are parsed
// from their string form.
func DecodeOptions(opts map[string]string, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(opts); err != nil {
		return &ConfigurationError{Key: "options", Value: fmt.Sprint(opts), Err: err}
	}
	return nil
}
