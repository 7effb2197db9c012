package relay

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AnnouncerConfig configures the mDNS announcer.
type AnnouncerConfig struct {
	// Interface restricts announcements to one network interface.
	// Empty uses all interfaces.
	Interface string

	// TTL is the mDNS record TTL. Zero uses the library default.
	TTL time.Duration
}

// Announcer advertises a relay over mDNS.
type Announcer struct {
	config AnnouncerConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAnnouncer creates a new mDNS announcer.
func NewAnnouncer(config AnnouncerConfig) (*Announcer, error) {
	return &Announcer{config: config}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *Announcer) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Announce starts advertising the relay. An existing announcement is
// replaced.
func (a *Announcer) Announce(ctx context.Context, info *RelayInfo) error {
	if info.ObserverID == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyObserverID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Stop existing if any
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instanceName := info.ObserverID
	if len(instanceName) > MaxInstanceNameLen {
		instanceName = instanceName[:MaxInstanceNameLen]
	}

	txtRecords := EncodeRelayTXT(info)
	txtStrings := TXTRecordsToStrings(txtRecords)

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	// Get interfaces (nil means all interfaces)
	ifaces := a.getInterfaces()

	server, err := zeroconf.Register(
		instanceName,
		ServiceTypeRelay,
		Domain,
		port,
		txtStrings,
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register relay service: %w", err)
	}

	a.server = server
	return nil
}

// Update replaces the TXT records of the current announcement.
func (a *Announcer) Update(info *RelayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAnnouncing
	}

	txtRecords := EncodeRelayTXT(info)
	a.server.SetText(TXTRecordsToStrings(txtRecords))
	return nil
}

// Stop stops advertising.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// BrowserConfig configures the mDNS browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	// Empty uses all interfaces.
	Interface string
}

// Browser watches for relay announcements over mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a new mDNS browser.
func NewBrowser(config BrowserConfig) (*Browser, error) {
	return &Browser{config: config}, nil
}

// Browse watches for relays until the context is cancelled. Services are
// aggregated by instance name - addresses from multiple interfaces are
// combined into a single entry, and a Gone event is emitted once the
// last address disappears.
func (b *Browser) Browse(ctx context.Context) (<-chan RelayEvent, error) {
	out := make(chan RelayEvent)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track services by instance name, aggregating addresses
		services := make(map[string]*RelayService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToRelay(entry)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					// Merge addresses into existing entry
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				} else {
					// New service - store and emit
					services[svc.InstanceName] = svc
					select {
					case out <- RelayEvent{Service: svc}:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Remove addresses that came from this interface
				existing, found := services[entry.Instance]
				if !found {
					continue
				}
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) > 0 {
					continue
				}
				delete(services, entry.Instance)
				select {
				case out <- RelayEvent{Service: existing, Gone: true}:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceTypeRelay, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToRelay converts a zeroconf entry to a RelayService.
func entryToRelay(entry *zeroconf.ServiceEntry) *RelayService {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeRelayTXT(txt)
	if err != nil {
		return nil
	}

	// Collect addresses
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &RelayService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Info:         *info,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
