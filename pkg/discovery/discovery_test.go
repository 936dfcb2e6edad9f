package discovery

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeTXTRoundTrip(t *testing.T) {
	info := &NodeInfo{
		NodeID:      "node-a",
		Resources:   []string{"pump", "boiler"},
		ClusterMode: "nats",
		Version:     "1.2.0",
	}
	strs := TXTRecordsToStrings(EncodeNodeTXT(info))
	assert.Equal(t, []string{"cm=nats", "id=node-a", "res=boiler,pump", "ver=1.2.0"}, strs)

	got, err := DecodeNodeTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, "node-a", got.NodeID)
	assert.Equal(t, []string{"boiler", "pump"}, got.Resources)
	assert.Equal(t, "nats", got.ClusterMode)
	assert.Equal(t, "1.2.0", got.Version)

	// The caller's slice is left in its original order.
	assert.Equal(t, []string{"pump", "boiler"}, info.Resources)
}

func TestDecodeNodeTXTMissingID(t *testing.T) {
	_, err := DecodeNodeTXT(TXTRecordMap{TXTKeyCluster: "local"})
	assert.True(t, errors.Is(err, ErrMissingRequired))
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "b=x=y", ""})
	assert.Equal(t, TXTRecordMap{"a": "1", "flag": "", "b": "x=y"}, txt)
}

func TestValidateInstanceName(t *testing.T) {
	assert.NoError(t, ValidateInstanceName("node-a"))
	assert.Error(t, ValidateInstanceName(""))
	assert.True(t, errors.Is(ValidateInstanceName(strings.Repeat("x", 64)), ErrInstanceNameTooLong))
}

func entry(instance string, text []string, addrs ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, Domain)
	e.HostName = instance + ".local."
	e.Port = 9100
	e.Text = text
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, ip)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, ip)
		}
	}
	return e
}

func TestAggregator(t *testing.T) {
	g := newAggregator()
	text := []string{"id=node-a", "cm=local"}

	svc, isNew := g.add(entry("node-a", text, "10.0.0.1"))
	require.True(t, isNew)
	assert.Equal(t, "node-a", svc.NodeID)
	assert.Equal(t, 9100, svc.Port)
	assert.Equal(t, "node-a.local.", svc.Host)

	_, isNew = g.add(entry("node-a", text, "10.0.0.1", "fe80::1"))
	assert.False(t, isNew, "second sighting merges into the first")
	assert.Equal(t, []string{"10.0.0.1", "fe80::1"}, svc.Addresses)

	_, isNew = g.add(entry("printer", []string{"rp=ipp"}, "10.0.0.9"))
	assert.False(t, isNew, "services without a node ID are ignored")

	g.remove(entry("node-a", nil, "10.0.0.1"))
	assert.Equal(t, []string{"fe80::1"}, svc.Addresses)
	g.remove(entry("node-a", nil, "fe80::1"))

	_, isNew = g.add(entry("node-a", text, "10.0.0.2"))
	assert.True(t, isNew, "a node whose addresses all vanished is new again")
}

func TestAdvertiserRejectsBadName(t *testing.T) {
	a := NewAdvertiser(AdvertiserConfig{})
	err := a.Advertise(&NodeInfo{NodeID: strings.Repeat("n", 70), Port: 1})
	assert.True(t, errors.Is(err, ErrInstanceNameTooLong))
	a.Stop()
}
