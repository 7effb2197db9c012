package observer

import (
	"testing"
	"time"
)

func TestRegisterDefaultsPriority(t *testing.T) {
	r := NewRegistry()

	local := r.Register("hci0", KindLocalAdapter, Capabilities{Connectable: true})
	if local.Capabilities.Priority != DefaultLocalPriority {
		t.Errorf("local priority: got %d, want %d", local.Capabilities.Priority, DefaultLocalPriority)
	}

	remote := r.Register("proxy-1", KindRemoteRelay, Capabilities{})
	if remote.Capabilities.Priority != DefaultRelayPriority {
		t.Errorf("relay priority: got %d, want %d", remote.Capabilities.Priority, DefaultRelayPriority)
	}

	explicit := r.Register("hci1", KindLocalAdapter, Capabilities{Priority: 7})
	if explicit.Capabilities.Priority != 7 {
		t.Errorf("explicit priority: got %d, want 7", explicit.Capabilities.Priority)
	}
}

func TestRegisterReplacesInPlace(t *testing.T) {
	r := NewRegistry()

	r.Register("hci0", KindLocalAdapter, Capabilities{MaxConnections: 1})
	r.Register("hci0", KindLocalAdapter, Capabilities{MaxConnections: 3})

	obs, ok := r.Get("hci0")
	if !ok {
		t.Fatal("observer missing after re-register")
	}
	if obs.Capabilities.MaxConnections != 3 {
		t.Errorf("MaxConnections: got %d, want 3", obs.Capabilities.MaxConnections)
	}
	if r.Count(false) != 1 {
		t.Errorf("count: got %d, want 1", r.Count(false))
	}
}

func TestDeregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("hci0", KindLocalAdapter, Capabilities{})

	if !r.Deregister("hci0") {
		t.Error("first deregister reported nothing removed")
	}
	if r.Deregister("hci0") {
		t.Error("second deregister reported removal")
	}
	if r.Deregister("never-existed") {
		t.Error("deregister of unknown id reported removal")
	}
}

func TestCountConnectableOnly(t *testing.T) {
	r := NewRegistry()
	r.Register("hci0", KindLocalAdapter, Capabilities{Connectable: true})
	r.Register("proxy-1", KindRemoteRelay, Capabilities{})

	if got := r.Count(false); got != 2 {
		t.Errorf("total count: got %d, want 2", got)
	}
	if got := r.Count(true); got != 1 {
		t.Errorf("connectable count: got %d, want 1", got)
	}
}

func TestRegistrationCallbacks(t *testing.T) {
	r := NewRegistry()

	var all []Registration
	remove := r.OnRegistration(func(reg Registration) {
		all = append(all, reg)
	}, "")

	var scoped []Registration
	r.OnRegistration(func(reg Registration) {
		scoped = append(scoped, reg)
	}, "hci0")

	r.Register("hci0", KindLocalAdapter, Capabilities{})
	r.Register("proxy-1", KindRemoteRelay, Capabilities{})
	r.UpdateCapabilities("hci0", Capabilities{Connectable: true})
	r.Deregister("hci0")

	if len(all) != 4 {
		t.Errorf("all-observer callback count: got %d, want 4", len(all))
	}
	if len(scoped) != 3 {
		t.Errorf("scoped callback count: got %d, want 3", len(scoped))
	}
	if scoped[0].Event != RegistrationAdded ||
		scoped[1].Event != RegistrationUpdated ||
		scoped[2].Event != RegistrationRemoved {
		t.Errorf("scoped event sequence wrong: %+v", scoped)
	}

	// After removal the callback must stop firing.
	remove()
	r.Register("hci2", KindLocalAdapter, Capabilities{})
	if len(all) != 4 {
		t.Errorf("callback fired after removal: got %d events", len(all))
	}
}

func TestConnectingSuppressesScanning(t *testing.T) {
	r := NewRegistry()
	r.Register("hci0", KindLocalAdapter, Capabilities{Connectable: true})

	if !r.IsScanning("hci0") {
		t.Fatal("fresh observer not scanning")
	}

	r.BeginConnecting("hci0")
	r.BeginConnecting("hci0")
	if r.IsScanning("hci0") {
		t.Error("scanning while connecting")
	}

	r.EndConnecting("hci0")
	if r.IsScanning("hci0") {
		t.Error("scanning with one attempt still in flight")
	}

	r.EndConnecting("hci0")
	if !r.IsScanning("hci0") {
		t.Error("not scanning after all attempts ended")
	}

	// Extra EndConnecting must not go negative.
	r.EndConnecting("hci0")
	if !r.IsScanning("hci0") {
		t.Error("scanning state corrupted by unbalanced EndConnecting")
	}
}

func TestCheckQuietAndRecovery(t *testing.T) {
	r := NewRegistry()
	r.Register("hci0", KindLocalAdapter, Capabilities{})
	r.Register("hci1", KindLocalAdapter, Capabilities{})

	now := time.Now()
	r.MarkDetection("hci0", now)
	r.MarkDetection("hci1", now.Add(-2*time.Minute))

	quieted := r.CheckQuiet(now, 90*time.Second)
	if len(quieted) != 1 || quieted[0] != "hci1" {
		t.Fatalf("quieted: got %v, want [hci1]", quieted)
	}
	if r.IsScanning("hci1") {
		t.Error("quiet observer still scanning")
	}
	if !r.IsScanning("hci0") {
		t.Error("fresh observer marked quiet")
	}

	// Already-quiet observers are not reported again.
	if again := r.CheckQuiet(now, 90*time.Second); len(again) != 0 {
		t.Errorf("re-reported quiet observers: %v", again)
	}

	// A new detection recovers the scanning flag.
	r.MarkDetection("hci1", now)
	if !r.IsScanning("hci1") {
		t.Error("detection did not clear quiet state")
	}
}

func TestCheckQuietMeasuresFromRegistration(t *testing.T) {
	r := NewRegistry()
	r.Register("hci0", KindLocalAdapter, Capabilities{})

	// Never reported a detection, but registered just now.
	if quieted := r.CheckQuiet(time.Now(), 90*time.Second); len(quieted) != 0 {
		t.Errorf("fresh observer marked quiet: %v", quieted)
	}

	if quieted := r.CheckQuiet(time.Now().Add(2*time.Minute), 90*time.Second); len(quieted) != 1 {
		t.Errorf("silent observer not marked quiet: %v", quieted)
	}
}

func TestListOnlineSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("hci1", KindLocalAdapter, Capabilities{})
	r.Register("hci0", KindLocalAdapter, Capabilities{})

	list := r.ListOnline()
	if len(list) != 2 || list[0].ID != "hci0" || list[1].ID != "hci1" {
		t.Errorf("list not sorted: %v", []string{list[0].ID, list[1].ID})
	}
}
