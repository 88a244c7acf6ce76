// Package types defines the core vocabulary of the provisioning engine:
// packages of actions, the collaborator contracts the engine consumes
// (Node, LogSink, Index, FileHandle, Renderer), and the Call capability
// surface handed to action bodies.
package types
