// Package natscluster implements the cluster interfaces of package
// distributed on NATS.
//
// Messaging publishes snapshots as core NATS messages: delivery is
// at-most-once, exactly what snapshot replication expects.
//
// Membership elects the active node with a lease in a JetStream
// key/value bucket. The bucket's TTL is the lease duration; the holder
// renews by updating the key at its last revision, other nodes try to
// create it and succeed only once it has expired or been released.
package natscluster
