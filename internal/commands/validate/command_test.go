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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/httpinvoke/internal/commands/shared"
)

func run(t *testing.T, content string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	opts := shared.NewOptions()
	root := &cobra.Command{Use: "httpinvoke", SilenceUsage: true, SilenceErrors: true}
	opts.RegisterFlags(root)
	root.AddCommand(NewCommand(opts))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"validate", "-f", path}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestValidate_OK(t *testing.T) {
	out, err := run(t, "name: a\nmethods: [{name: m, url: /x, result: json, transform: .items}]")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ a (1 methods)")
}

func TestValidate_BadTransform(t *testing.T) {
	content := "name: a\nmethods: [{name: m, url: /x, result: json, transform: '.items['}]\n---\nname: b\nmethods: [{name: m, url: /y}]"

	out, err := run(t, content)
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidCatalog, shared.ExitCode(err))
	assert.Contains(t, out, "✗ a")
	assert.Contains(t, out, "✓ b")
	assert.Contains(t, err.Error(), "1 of 2 APIs are invalid")
}

func TestValidate_JSON(t *testing.T) {
	out, err := run(t, "name: a\nmethods: [{name: m, url: /x, result: json, transform: '.items['}]", "--json")
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.APIs, 1)
	assert.NotEmpty(t, resp.APIs[0].Error)
}

func TestValidate_InvalidCatalog(t *testing.T) {
	_, err := run(t, "name: a\nmethods: [{name: m}]")
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidCatalog, shared.ExitCode(err))
}
