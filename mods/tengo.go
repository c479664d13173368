package mods

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/aicore/events"
)

// tengoDispatch is appended to every tengo mod. The mod's top level runs on
// every call, so only the `state` map survives between notifications.
const tengoDispatch = `
__result := undefined
if __kind != "" {
	__handler := handlers[__kind]
	if is_callable(__handler) {
		__result = __handler(__event)
	}
}
`

type tengoMod struct {
	compiled *tengo.Compiled
	state    *tengo.Map
	kinds    []events.Kind
	timeout  time.Duration
}

func newTengoMod(src []byte, timeout time.Duration) (*tengoMod, error) {
	script := tengo.NewScript(append(append([]byte{}, src...), tengoDispatch...))
	_ = script.Add("__kind", "")
	_ = script.Add("__event", map[string]any{})
	_ = script.Add("state", map[string]any{})
	script.SetImports(stdlib.GetModuleMap("math", "text", "times", "fmt", "enum", "rand"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, err
	}
	m := &tengoMod{
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
		timeout:  timeout,
	}
	if err := m.run("", map[string]any{}); err != nil {
		return nil, err
	}
	if m.kinds, err = m.handlerKinds(); err != nil {
		return nil, err
	}
	return m, nil
}

// handlerKinds validates the `handlers` map declared by the script.
func (m *tengoMod) handlerKinds() ([]events.Kind, error) {
	if !m.compiled.IsDefined("handlers") {
		return nil, fmt.Errorf("tengo mod declares no handlers")
	}
	var entries map[string]tengo.Object
	switch h := m.compiled.Get("handlers").Object().(type) {
	case *tengo.Map:
		entries = h.Value
	case *tengo.ImmutableMap:
		entries = h.Value
	default:
		return nil, fmt.Errorf("handlers must be a map, got %s", h.TypeName())
	}

	kinds := make([]events.Kind, 0, len(entries))
	for name, fn := range entries {
		kind, err := events.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !fn.CanCall() {
			return nil, fmt.Errorf("handler for %s is not callable", name)
		}
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds, nil
}

func (m *tengoMod) run(kind string, fields map[string]any) error {
	if err := m.compiled.Set("__kind", kind); err != nil {
		return err
	}
	if err := m.compiled.Set("__event", fields); err != nil {
		return err
	}
	if err := m.compiled.Set("state", m.state); err != nil {
		return err
	}
	ctx := context.Background()
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.compiled.RunContext(ctx)
}

func (m *tengoMod) Kinds() []events.Kind { return m.kinds }

func (m *tengoMod) Handle(kind events.Kind, fields map[string]any) (events.Verdict, error) {
	if err := m.run(kind.String(), fields); err != nil {
		return events.Continue, err
	}
	return verdictOf(m.compiled.Get("__result").Value()), nil
}

func (m *tengoMod) Close() {}
