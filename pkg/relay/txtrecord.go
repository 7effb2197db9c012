package relay

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeRelayTXT creates TXT records for a relay announcement.
func EncodeRelayTXT(info *RelayInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyObserverID] = info.ObserverID
	txt[TXTKeySlots] = strconv.Itoa(info.Slots)

	// Optional fields
	if info.Connectable {
		txt[TXTKeyConnectable] = "1"
	}
	if info.Priority > 0 {
		txt[TXTKeyPriority] = strconv.Itoa(info.Priority)
	}
	if info.StaleWindow > 0 {
		txt[TXTKeyStaleWindow] = strconv.Itoa(int(info.StaleWindow.Seconds()))
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}

	return txt
}

// DecodeRelayTXT parses TXT records from a relay announcement.
func DecodeRelayTXT(txt TXTRecordMap) (*RelayInfo, error) {
	info := &RelayInfo{}

	// Parse observer id (required)
	var ok bool
	info.ObserverID, ok = txt[TXTKeyObserverID]
	if !ok || info.ObserverID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyObserverID)
	}

	// Parse slot capacity (required)
	slotsStr, ok := txt[TXTKeySlots]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySlots)
	}
	slots, err := strconv.Atoi(slotsStr)
	if err != nil || slots < 0 {
		return nil, fmt.Errorf("%w: invalid slot capacity %q", ErrInvalidTXTRecord, slotsStr)
	}
	info.Slots = slots

	// Optional fields
	info.Connectable = txt[TXTKeyConnectable] == "1"
	info.Name = txt[TXTKeyName]

	if prStr, ok := txt[TXTKeyPriority]; ok {
		pr, err := strconv.Atoi(prStr)
		if err != nil || pr < 0 {
			return nil, fmt.Errorf("%w: invalid priority %q", ErrInvalidTXTRecord, prStr)
		}
		info.Priority = pr
	}

	if ttlStr, ok := txt[TXTKeyStaleWindow]; ok {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil || ttl < 0 {
			return nil, fmt.Errorf("%w: invalid stale window %q", ErrInvalidTXTRecord, ttlStr)
		}
		info.StaleWindow = time.Duration(ttl) * time.Second
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
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
