// Package version provides version information for the oracle-attest application.
package version

// Version is the current version of the oracle-attest application.
const Version = "0.3.0"

// AgentString returns the full agent string with versioning.
// Format: oracle-attest/v{version}
func AgentString() string {
	return "oracle-attest/v" + Version
}
