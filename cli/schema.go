package cli

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/handeye/components/arm/fake"
	"go.viam.com/handeye/components/arm/sim"
	"go.viam.com/handeye/components/arm/universalrobots"
	fakecamera "go.viam.com/handeye/components/camera/fake"
	"go.viam.com/handeye/config"
)

// attributeSchemas maps "<component>/<model>" to the schema of its attributes.
var attributeSchemas = map[string]*jsonschema.Schema{
	"arm/" + config.ArmModelFake:       jsonschema.Reflect(&fake.Config{}),
	"arm/" + config.ArmModelSim:        jsonschema.Reflect(&sim.Config{}),
	"arm/" + config.ArmModelUR:         jsonschema.Reflect(&universalrobots.Config{}),
	"camera/" + config.CameraModelFake: jsonschema.Reflect(&fakecamera.Config{}),
}

// SchemaAction prints the JSON schema of the config file, or of one model's attributes.
func SchemaAction(c *cli.Context) error {
	schema := jsonschema.Reflect(&config.Config{})
	if name := c.Args().First(); name != "" {
		var ok bool
		if schema, ok = attributeSchemas[name]; !ok {
			names := make([]string, 0, len(attributeSchemas))
			for n := range attributeSchemas {
				names = append(names, n)
			}
			sort.Strings(names)
			return errors.Errorf("unknown model %q, expected one of %v", name, names)
		}
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
