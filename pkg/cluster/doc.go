// Package cluster provides in-process implementations of the cluster
// interfaces used by package distributed. They serve single-node
// deployments and tests.
package cluster
