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

package list

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tombee/httpinvoke/internal/catalog"
	"github.com/tombee/httpinvoke/internal/commands/shared"
)

// MethodInfo describes one method in list output.
type MethodInfo struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	URL         string `json:"url"`
	Result      string `json:"result"`
	Params      int    `json:"params"`
	Description string `json:"description,omitempty"`
}

// APIInfo describes one API in list output.
type APIInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Prefix      string       `json:"prefix,omitempty"`
	Source      string       `json:"source"`
	Methods     []MethodInfo `json:"methods"`
}

// Response is the JSON output of list.
type Response struct {
	shared.JSONResponse
	APIs []APIInfo `json:"apis"`
}

// NewCommand creates the list command
func NewCommand(opts *shared.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [pattern]",
		Short: "List APIs and methods in the catalog",
		Long: `List shows every method of every API found in the catalog files.

An optional glob pattern filters on "<api>.<method>".`,
		Example: `  # List everything under apis/
  httpinvoke list -f 'apis/**/*.yaml'

  # Only the users API
  httpinvoke list 'users.*'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			if !doublestar.ValidatePattern(pattern) {
				return shared.NewInvalidArgumentsError(fmt.Sprintf("invalid pattern %q", pattern), nil)
			}

			cat, err := opts.LoadCatalog()
			if err != nil {
				return err
			}
			apis := Collect(cat, pattern)

			if opts.JSON {
				return shared.EmitJSON(cmd.OutOrStdout(), Response{
					JSONResponse: shared.NewJSONResponse("list"),
					APIs:         apis,
				})
			}
			return printTable(cmd, apis)
		},
	}
	return cmd
}

// Collect returns the catalog entries whose "<api>.<method>" matches
// pattern. APIs without a matching method are omitted.
func Collect(cat *catalog.Catalog, pattern string) []APIInfo {
	apis := []APIInfo{}
	for _, name := range cat.Names() {
		def, _ := cat.Lookup(name)
		info := APIInfo{
			Name:        def.Name,
			Description: def.Description,
			Prefix:      def.Prefix,
			Source:      def.Source,
		}
		for _, m := range def.Methods {
			matched, _ := doublestar.Match(pattern, def.Name+"."+m.Name)
			if !matched {
				continue
			}
			verb := strings.ToUpper(m.Method)
			if verb == "" {
				verb = "GET"
			}
			result := m.Result
			if result == "" {
				result = "text"
			}
			info.Methods = append(info.Methods, MethodInfo{
				Name:        m.Name,
				Method:      verb,
				URL:         m.URL,
				Result:      result,
				Params:      len(m.Params),
				Description: m.Description,
			})
		}
		if len(info.Methods) > 0 {
			apis = append(apis, info)
		}
	}
	return apis
}

func printTable(cmd *cobra.Command, apis []APIInfo) error {
	if len(apis) == 0 {
		cmd.Println("No methods found.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tVERB\tURL\tRESULT")
	for _, api := range apis {
		for _, m := range api.Methods {
			fmt.Fprintf(w, "%s.%s\t%s\t%s\t%s\n", api.Name, m.Name, m.Method, m.URL, m.Result)
		}
	}
	return w.Flush()
}
