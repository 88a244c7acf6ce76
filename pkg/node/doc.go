// Package node provides the two bundled types.Node implementations: Local,
// which treats the controller machine as its own provisioning target, and
// Mock, which records intended effects instead of performing them. A real
// transport (SSH or similar) lives outside this repository and plugs in
// through the same interface.
package node
