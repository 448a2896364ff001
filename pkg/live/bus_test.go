package live

import (
	"testing"
)

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var order []int
	bus.Subscribe(KindTranscript, func(Event) { order = append(order, 1) })
	bus.Subscribe(KindTranscript, func(Event) { order = append(order, 2) })
	bus.Subscribe(KindTranscript, func(Event) { order = append(order, 3) })

	bus.Publish(TranscriptEvent{})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestBus_OnlyMatchingKindInvoked(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var transcripts, metadatas int
	bus.Subscribe(KindTranscript, func(Event) { transcripts++ })
	bus.Subscribe(KindMetadata, func(Event) { metadatas++ })

	bus.Publish(TranscriptEvent{})
	bus.Publish(TranscriptEvent{})
	bus.Publish(MetadataEvent{})

	if transcripts != 2 {
		t.Errorf("transcript handler invoked %d times, want 2", transcripts)
	}
	if metadatas != 1 {
		t.Errorf("metadata handler invoked %d times, want 1", metadatas)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var calls int
	h := bus.Subscribe(KindTranscript, func(Event) { calls++ })

	bus.Publish(TranscriptEvent{})
	if !bus.Unsubscribe(h) {
		t.Fatalf("Unsubscribe returned false for a live handle")
	}
	bus.Publish(TranscriptEvent{})

	if calls != 1 {
		t.Errorf("handler invoked %d times, want 1", calls)
	}
	if bus.Unsubscribe(h) {
		t.Errorf("second Unsubscribe should return false")
	}
}

func TestBus_SubscribeDuringDispatchSeesNextEventOnly(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var lateCalls int
	bus.Subscribe(KindTranscript, func(Event) {
		if lateCalls == 0 {
			bus.Subscribe(KindTranscript, func(Event) { lateCalls++ })
		}
	})

	bus.Publish(TranscriptEvent{})
	if lateCalls != 0 {
		t.Fatalf("handler added during dispatch received the current event")
	}

	bus.Publish(TranscriptEvent{})
	if lateCalls != 1 {
		t.Fatalf("handler added during dispatch did not receive the next event (calls=%d)", lateCalls)
	}
}

func TestBus_UnsubscribeDuringDispatchSkipsNotYetReached(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var secondCalls int
	var second Handle
	bus.Subscribe(KindTranscript, func(Event) { bus.Unsubscribe(second) })
	second = bus.Subscribe(KindTranscript, func(Event) { secondCalls++ })

	bus.Publish(TranscriptEvent{})
	if secondCalls != 0 {
		t.Fatalf("handler removed earlier in the dispatch loop was still invoked")
	}
}

func TestBus_PanickingListenerBecomesWarning(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var warnings []WarningEvent
	var after int
	bus.Subscribe(KindWarning, func(ev Event) {
		warnings = append(warnings, ev.(WarningEvent))
	})
	bus.Subscribe(KindTranscript, func(Event) { panic("boom") })
	bus.Subscribe(KindTranscript, func(Event) { after++ })

	bus.Publish(TranscriptEvent{})

	if after != 1 {
		t.Errorf("handler after the panicking one invoked %d times, want 1", after)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warning events, want 1", len(warnings))
	}
	if warnings[0].Code != WarnListenerPanic {
		t.Errorf("warning code = %q, want %q", warnings[0].Code, WarnListenerPanic)
	}
}

func TestBus_PanickingWarningListenerDoesNotRecurse(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var calls int
	bus.Subscribe(KindWarning, func(Event) {
		calls++
		panic("warning handler broken")
	})

	// Must terminate rather than publishing warnings about warnings forever.
	bus.Publish(WarningEvent{Code: WarnDecodeFailed, Message: "bad frame"})

	if calls != 1 {
		t.Fatalf("warning handler invoked %d times, want 1", calls)
	}
}
