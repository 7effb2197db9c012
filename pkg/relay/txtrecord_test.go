package relay

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRelayTXT(t *testing.T) {
	info := &RelayInfo{
		ObserverID:  "proxy-kitchen",
		Name:        "Kitchen Proxy",
		Slots:       3,
		Connectable: true,
		Priority:    50,
		StaleWindow: 195 * time.Second,
	}

	decoded, err := DecodeRelayTXT(EncodeRelayTXT(info))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.ObserverID != info.ObserverID {
		t.Errorf("observer id: got %q, want %q", decoded.ObserverID, info.ObserverID)
	}
	if decoded.Slots != info.Slots {
		t.Errorf("slots: got %d, want %d", decoded.Slots, info.Slots)
	}
	if !decoded.Connectable {
		t.Error("connectable flag lost")
	}
	if decoded.Priority != info.Priority {
		t.Errorf("priority: got %d, want %d", decoded.Priority, info.Priority)
	}
	if decoded.StaleWindow != info.StaleWindow {
		t.Errorf("stale window: got %s, want %s", decoded.StaleWindow, info.StaleWindow)
	}
	if decoded.Name != info.Name {
		t.Errorf("name: got %q, want %q", decoded.Name, info.Name)
	}
}

func TestEncodeRelayTXTOmitsOptional(t *testing.T) {
	txt := EncodeRelayTXT(&RelayInfo{ObserverID: "proxy-1", Slots: 0})

	if _, ok := txt[TXTKeyConnectable]; ok {
		t.Error("connectable key present for non-connectable relay")
	}
	if _, ok := txt[TXTKeyPriority]; ok {
		t.Error("priority key present with zero priority")
	}
	if _, ok := txt[TXTKeyStaleWindow]; ok {
		t.Error("stale window key present with zero window")
	}
}

func TestDecodeRelayTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{
			name: "missing observer id",
			txt:  TXTRecordMap{TXTKeySlots: "2"},
			want: ErrMissingRequired,
		},
		{
			name: "missing slots",
			txt:  TXTRecordMap{TXTKeyObserverID: "proxy-1"},
			want: ErrMissingRequired,
		},
		{
			name: "invalid slots",
			txt:  TXTRecordMap{TXTKeyObserverID: "proxy-1", TXTKeySlots: "lots"},
			want: ErrInvalidTXTRecord,
		},
		{
			name: "negative slots",
			txt:  TXTRecordMap{TXTKeyObserverID: "proxy-1", TXTKeySlots: "-1"},
			want: ErrInvalidTXTRecord,
		},
		{
			name: "invalid priority",
			txt:  TXTRecordMap{TXTKeyObserverID: "proxy-1", TXTKeySlots: "2", TXTKeyPriority: "high"},
			want: ErrInvalidTXTRecord,
		},
		{
			name: "invalid stale window",
			txt:  TXTRecordMap{TXTKeyObserverID: "proxy-1", TXTKeySlots: "2", TXTKeyStaleWindow: "soon"},
			want: ErrInvalidTXTRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRelayTXT(tt.txt); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTXTStringConversion(t *testing.T) {
	txt := TXTRecordMap{"id": "proxy-1", "sl": "2"}

	strs := TXTRecordsToStrings(txt)
	if len(strs) != 2 {
		t.Fatalf("strings: got %d, want 2", len(strs))
	}
	back := StringsToTXTRecords(strs)
	if back["id"] != "proxy-1" || back["sl"] != "2" {
		t.Errorf("round-trip lost data: %v", back)
	}

	// A value containing '=' splits only on the first.
	back = StringsToTXTRecords([]string{"dn=Kitchen=Proxy", "flag"})
	if back["dn"] != "Kitchen=Proxy" {
		t.Errorf("value with '=': got %q", back["dn"])
	}
	if v, ok := back["flag"]; !ok || v != "" {
		t.Errorf("bare key: got %q (%v)", v, ok)
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("blemux-proxy-1"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateInstanceName(""); err == nil {
		t.Error("empty name accepted")
	}
	if err := ValidateInstanceName(strings.Repeat("x", MaxInstanceNameLen+1)); err == nil {
		t.Error("over-long name accepted")
	}
	if err := ValidateInstanceName(strings.Repeat("x", MaxInstanceNameLen)); err != nil {
		t.Errorf("name at the limit rejected: %v", err)
	}
}
