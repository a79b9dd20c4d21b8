// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package validate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/httpinvoke/internal/catalog"
	"github.com/tombee/httpinvoke/internal/commands/shared"
	"github.com/tombee/httpinvoke/pkg/invoker"
)

// APIResult is the validation outcome for one API.
type APIResult struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Methods int    `json:"methods"`
	Error   string `json:"error,omitempty"`
}

// Response is the JSON output of validate.
type Response struct {
	shared.JSONResponse
	APIs []APIResult `json:"apis"`
}

// NewCommand creates the validate command
func NewCommand(opts *shared.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate catalog files",
		Long: `Validate loads the catalog and checks every API definition: names,
URLs, result kinds, retry policies and jq transforms. Nothing is sent.`,
		Example: `  httpinvoke validate -f 'apis/**/*.yaml'
  httpinvoke validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.LoadCatalog()
			if err != nil {
				return err
			}

			results, failed := Check(cat)
			if opts.JSON {
				resp := Response{JSONResponse: shared.NewJSONResponse("validate"), APIs: results}
				resp.Success = failed == 0
				if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, r := range results {
					if r.Error != "" {
						fmt.Fprintf(out, "✗ %s (%s): %s\n", r.Name, r.Source, r.Error)
						continue
					}
					fmt.Fprintf(out, "✓ %s (%d methods)\n", r.Name, r.Methods)
				}
			}
			if failed > 0 {
				return shared.NewInvalidCatalogError(fmt.Sprintf("%d of %d APIs are invalid", failed, len(results)), nil)
			}
			return nil
		},
	}
}

// Check builds a dispatcher for every API in cat and reports the ones
// that fail.
func Check(cat *catalog.Catalog) ([]APIResult, int) {
	noop := invoker.RequestorFunc(func(context.Context, *invoker.Request) (*invoker.Response, error) {
		return nil, nil
	})

	results := make([]APIResult, 0, cat.Len())
	failed := 0
	for _, name := range cat.Names() {
		def, _ := cat.Lookup(name)
		r := APIResult{Name: def.Name, Source: def.Source, Methods: len(def.Methods)}
		if _, err := invoker.New(def.API(), noop); err != nil {
			r.Error = err.Error()
			failed++
		}
		results = append(results, r)
	}
	return results, failed
}
