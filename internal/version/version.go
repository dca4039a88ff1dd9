// Package version holds build-time identity shared by every Anvyl binary
// and advertised by the MCP server's server_info block.
package version

// BinaryName identifies this build in logs and MCP server_info responses.
const BinaryName = "anvyl"

// Version is overridden at build time via -ldflags "-X ...Version=...".
var Version = "dev"
