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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tombee/httpinvoke/internal/cli"
	"github.com/tombee/httpinvoke/internal/commands/call"
	"github.com/tombee/httpinvoke/internal/commands/list"
	"github.com/tombee/httpinvoke/internal/commands/shared"
	"github.com/tombee/httpinvoke/internal/commands/validate"
	versioncmd "github.com/tombee/httpinvoke/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	opts := shared.NewOptions()
	rootCmd := cli.NewRootCommand(opts)

	rootCmd.AddCommand(list.NewCommand(opts))
	rootCmd.AddCommand(call.NewCommand(opts))
	rootCmd.AddCommand(validate.NewCommand(opts))
	rootCmd.AddCommand(versioncmd.NewVersionCommand(opts))

	// Cancel in-flight calls and retry backoff on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.HandleExitError(err)
	}
}
