package config

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Component names a model and carries its model specific attributes.
type Component struct {
	Model      string                 `json:"model"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Validate checks that the model is one of models.
func (c *Component) Validate(path string, models ...string) error {
	if c.Model == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "model")
	}
	for _, m := range models {
		if c.Model == m {
			return nil
		}
	}
	return goutils.NewConfigValidationError(path, errors.Errorf("unknown model %q, expected one of %v", c.Model, models))
}

// ConvertAttributes decodes the attributes into out, which must be a pointer to a struct with
// json tags. Unknown attributes are an error.
func (c *Component) ConvertAttributes(out interface{}) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(c.Attributes); err != nil {
		return errors.Wrapf(err, "decoding %s attributes", c.Model)
	}
	if len(md.Unused) > 0 {
		return errors.Errorf("unknown %s attributes %v", c.Model, md.Unused)
	}
	return nil
}
