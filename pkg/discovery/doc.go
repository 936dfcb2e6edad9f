// Package discovery advertises attrhub nodes on the local network with
// mDNS/DNS-SD and browses for them.
//
// Each node registers one instance of ServiceType. The instance name is the
// node ID and the port is the node's HTTP port (metrics and attribute API).
// TXT records carry:
//
//	id   node ID
//	res  managed resources (comma-separated)
//	cm   cluster mode ("local" or "nats")
//	ver  software version (optional)
//
// Discovery is informational. Nodes do not join the cluster through it;
// replication goes through the configured cluster messaging.
package discovery
