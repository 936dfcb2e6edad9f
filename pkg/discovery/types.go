package discovery

import (
	"errors"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of attrhub nodes.
	ServiceType = "_attrhub._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultTTL is the record TTL used when none is configured.
	DefaultTTL = 2 * time.Minute

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyNodeID    = "id"
	TXTKeyResources = "res"
	TXTKeyCluster   = "cm"
	TXTKeyVersion   = "ver"
)

var (
	ErrMissingRequired     = errors.New("discovery: missing required TXT record")
	ErrInstanceNameTooLong = errors.New("discovery: instance name too long")
)

// NodeInfo is what a node advertises about itself.
type NodeInfo struct {
	NodeID      string
	Port        int
	Resources   []string
	ClusterMode string
	Version     string
}

// NodeService is a node found while browsing.
type NodeService struct {
	NodeInfo
	InstanceName string
	Host         string
	Addresses    []string
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface. Empty
	// means all interfaces.
	Interface string
	// TTL of the published records.
	TTL time.Duration
}

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	Interface string
}
