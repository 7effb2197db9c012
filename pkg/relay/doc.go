// Package relay discovers remote relay observers over mDNS.
//
// Relay proxies announce a _blemux._tcp service whose TXT records carry
// the observer id, connection slot capacity, connectable flag, priority,
// and stale window. The Browser watches for these announcements and the
// Bridge converts appearing and disappearing relays into observer
// online/offline events for the core manager. Sighting transport between
// relay and core is out of scope here; only presence and capability
// discovery happens over mDNS.
//
// # Announcing
//
//	ann, _ := relay.NewAnnouncer(relay.AnnouncerConfig{})
//	err := ann.Announce(ctx, &relay.RelayInfo{
//	    ObserverID:  "proxy-kitchen",
//	    Slots:       2,
//	    Connectable: true,
//	})
//	defer ann.Stop()
//
// # Browsing
//
//	browser, _ := relay.NewBrowser(relay.BrowserConfig{})
//	bridge := relay.NewBridge(mgr, browser)
//	go bridge.Run(ctx)
package relay
