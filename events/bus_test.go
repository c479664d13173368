package events

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/milk9111/aicore/ecs"
	"github.com/sirupsen/logrus"
)

func quietBus(opts ...BusOption) *Bus {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewBus(append([]BusOption{WithLogger(log)}, opts...)...)
}

func TestBus_HandlersRunInSubscriptionOrder(t *testing.T) {
	b := quietBus()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		b.Subscribe(TurnStartKind, Observe(func(Notification) { order = append(order, name) }))
	}
	b.EmitSimple(TurnStart{Turn: 1}, false)

	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestBus_FaultIsolation(t *testing.T) {
	b := quietBus()
	var ran []string
	b.Subscribe(CombatHitKind, func(Notification) (Verdict, error) {
		panic("boom")
	})
	b.Subscribe(CombatHitKind, func(Notification) (Verdict, error) {
		ran = append(ran, "after-panic")
		return Continue, errors.New("bad handler")
	})
	b.Subscribe(CombatHitKind, Observe(func(Notification) { ran = append(ran, "last") }))

	b.EmitSimple(CombatHit{Damage: 3}, false)

	if diff := cmp.Diff([]string{"after-panic", "last"}, ran); diff != "" {
		t.Fatalf("handlers run (-want +got):\n%s", diff)
	}
	if got := len(b.History(CombatHitKind)); got != 1 {
		t.Fatalf("history len = %d, want 1", got)
	}
}

func TestBus_CancelLetsRemainingHandlersObserve(t *testing.T) {
	b := quietBus()
	var sawCancelled bool
	b.Subscribe(CombatStartKind, func(Notification) (Verdict, error) { return Cancel, nil })
	b.Subscribe(CombatStartKind, Observe(func(n Notification) { sawCancelled = n.Cancelled() }))

	out := b.EmitSimple(CombatStart{Attacker: ecs.Entity(1), Defender: ecs.Entity(2)}, true)

	if !out.Cancelled() {
		t.Fatalf("expected cancelled notification")
	}
	if !sawCancelled {
		t.Fatalf("later handler should observe cancellation")
	}
	hist := b.History(CombatStartKind)
	if len(hist) != 1 || !hist[0].Cancelled() {
		t.Fatalf("history should record the cancelled notification: %+v", hist)
	}
}

func TestBus_CancelIgnoredWhenNotCancellable(t *testing.T) {
	b := quietBus()
	b.Subscribe(EntityMoveKind, func(Notification) (Verdict, error) { return Cancel, nil })
	out := b.EmitSimple(EntityMove{Entity: ecs.Entity(1)}, false)
	if out.Cancelled() {
		t.Fatalf("non-cancellable notification must not be cancelled")
	}
}

func TestBus_ErroringHandlerVerdictDiscarded(t *testing.T) {
	b := quietBus()
	b.Subscribe(CombatStartKind, func(Notification) (Verdict, error) { return Cancel, errors.New("oops") })
	if b.EmitSimple(CombatStart{}, true).Cancelled() {
		t.Fatalf("a failed handler's cancel must be discarded")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := quietBus()
	calls := 0
	sub := b.Subscribe(TurnEndKind, Observe(func(Notification) { calls++ }))
	b.EmitSimple(TurnEnd{}, false)
	if !b.Unsubscribe(TurnEndKind, sub) {
		t.Fatalf("unsubscribe should succeed")
	}
	if b.Unsubscribe(TurnEndKind, sub) {
		t.Fatalf("second unsubscribe should fail")
	}
	b.EmitSimple(TurnEnd{}, false)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBus_NestedEmitDeferred(t *testing.T) {
	b := quietBus()
	var order []string
	b.Subscribe(CombatStartKind, Observe(func(n Notification) {
		order = append(order, "start:1")
		b.EmitSimple(AllyInCombat{Ally: 3}, false)
	}))
	b.Subscribe(CombatStartKind, Observe(func(Notification) { order = append(order, "start:2") }))
	b.Subscribe(AllyInCombatKind, Observe(func(Notification) { order = append(order, "ally") }))

	b.EmitSimple(CombatStart{}, true)

	if diff := cmp.Diff([]string{"start:1", "start:2", "ally"}, order); diff != "" {
		t.Fatalf("dispatch order (-want +got):\n%s", diff)
	}
	var kinds []Kind
	for _, n := range b.History() {
		kinds = append(kinds, n.Kind)
	}
	if diff := cmp.Diff([]Kind{CombatStartKind, AllyInCombatKind}, kinds); diff != "" {
		t.Fatalf("history order (-want +got):\n%s", diff)
	}
}

func TestBus_NestedFollowUpSeesVerdict(t *testing.T) {
	b := quietBus()
	b.Subscribe(CombatStartKind, func(Notification) (Verdict, error) { return Cancel, nil })
	var order []string
	var nestedRan bool
	b.Subscribe(TurnStartKind, Observe(func(Notification) {
		_, nestedRan = b.EmitThen(New(CombatStart{}, true, "test"), func(n Notification) {
			order = append(order, fmt.Sprintf("combat cancelled=%v", n.Cancelled()))
		})
		order = append(order, "turn handler")
	}))

	_, ran := b.EmitThen(New(TurnStart{Turn: 1}, false, "test"), func(Notification) {
		order = append(order, "turn follow-up")
	})

	if !ran || nestedRan {
		t.Fatalf("top-level ran=%v, nested dispatched immediately=%v", ran, nestedRan)
	}
	want := []string{"turn handler", "combat cancelled=true", "turn follow-up"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestBus_HistoryBoundedAndFiltered(t *testing.T) {
	b := quietBus(WithHistoryCapacity(3))
	for i := 1; i <= 5; i++ {
		b.EmitSimple(TurnStart{Turn: i}, false)
	}
	b.EmitSimple(TurnEnd{Turn: 5}, false)

	var turns []int
	for _, n := range b.History(TurnStartKind) {
		turns = append(turns, n.Payload.(TurnStart).Turn)
	}
	if diff := cmp.Diff([]int{4, 5}, turns); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
	if got := len(b.History()); got != 3 {
		t.Fatalf("history len = %d, want 3", got)
	}
	b.ClearHistory()
	if got := len(b.History()); got != 0 {
		t.Fatalf("history len after clear = %d", got)
	}
}

func TestBus_ClearHandlers(t *testing.T) {
	b := quietBus()
	b.Subscribe(TurnStartKind, Observe(func(Notification) {}))
	b.Subscribe(TurnEndKind, Observe(func(Notification) {}))
	b.ClearHandlers()
	if b.HandlerCount(TurnStartKind)+b.HandlerCount(TurnEndKind) != 0 {
		t.Fatalf("handlers not cleared")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("teleport"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if !CombatStartKind.Cancellable() || EntityMoveKind.Cancellable() {
		t.Fatalf("unexpected default cancellability")
	}
}
