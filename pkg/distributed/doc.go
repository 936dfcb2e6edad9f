// Package distributed replicates mutable attribute state across a cluster.
//
// A DistributedRepository wraps a repository.Repository. On every tick of
// a periodic job the node that is currently active for the cluster asks
// each attribute binding implementing Distributable for a snapshot and
// publishes it on the resource's channel. Every node, the sender
// included, applies received snapshots to its local attribute of the same
// ID; snapshots for unknown attributes are dropped silently.
//
// Delivery is at-most-once and unordered. Applying a snapshot must be
// idempotent; the last snapshot to arrive wins.
//
// Cluster technology stays behind ClusterMembership and ClusterMessaging.
// See package cluster for in-process implementations and natscluster for
// NATS.
package distributed
