// ABOUTME: Entry point for the dealdesk CLI, HTTP API, MCP server and TUI
// ABOUTME: All routing lives in the cobra command tree under cli/
package main

import "github.com/harperreed/dealdesk/cli"

const version = "0.2.0"

func main() {
	cli.Execute(version)
}
