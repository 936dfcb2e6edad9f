package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeNodeTXT creates the TXT records of a node.
func EncodeNodeTXT(info *NodeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyNodeID:  info.NodeID,
		TXTKeyCluster: info.ClusterMode,
	}
	if len(info.Resources) > 0 {
		res := append([]string(nil), info.Resources...)
		sort.Strings(res)
		txt[TXTKeyResources] = strings.Join(res, ",")
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeNodeTXT parses the TXT records of a node. The port is not part of
// the records and is left zero.
func DecodeNodeTXT(txt TXTRecordMap) (*NodeInfo, error) {
	id, ok := txt[TXTKeyNodeID]
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNodeID)
	}
	info := &NodeInfo{
		NodeID:      id,
		ClusterMode: txt[TXTKeyCluster],
		Version:     txt[TXTKeyVersion],
	}
	if res := txt[TXTKeyResources]; res != "" {
		info.Resources = strings.Split(res, ",")
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings in
// key order.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
