package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/multidl-cli/multidl/batch"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolP("result", "r", false, "Generate the JSON Schema for the batch outcome report")
}

// schemaCmd generates JSON schemas for the machine-readable surfaces.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schemas for the manifest and outcome report shapes",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			name := t.Name()
			switch strings.ToLower(name) {
			case "manifestitem", "result", "completion", "skip", "failure":
				return filepath.Base(t.PkgPath()) + "." + name
			}

			return name
		}

		var schema *jsonschema.Schema

		switch {
		case lo.Must(cmd.Flags().GetBool("result")):
			schema = reflector.Reflect(&batch.Result{})
		default:
			schema = reflector.Reflect([]batch.ManifestItem{})
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(schema))
	},
}
