// Copyright 2025 FinSight AI
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

// Command finsight runs the financial-analysis assistant service.
//
// Usage:
//
//	finsight serve --config config.yaml
//	finsight check --config config.yaml
//	finsight validate --config config.yaml
//	finsight schema
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the analysis HTTP service."`
	Check    CheckCmd    `cmd:"" help:"Report pipeline readiness per scenario."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate the JSON schema for the configuration."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("finsight"),
		kong.Description("Multi-agent financial analysis assistant"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
