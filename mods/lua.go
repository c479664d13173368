package mods

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/milk9111/aicore/events"
	lua "github.com/yuin/gopher-lua"
)

// luaMod keeps one interpreter per mod; globals, including `state`, persist
// until the mod is unloaded.
type luaMod struct {
	L        *lua.LState
	handlers map[events.Kind]*lua.LFunction
	timeout  time.Duration
}

func newLuaMod(name string, src []byte, timeout time.Duration) (*luaMod, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)

	m := &luaMod{L: L, handlers: map[events.Kind]*lua.LFunction{}, timeout: timeout}
	L.SetGlobal("state", L.NewTable())
	L.SetGlobal("on", L.NewFunction(func(L *lua.LState) int {
		kind, err := events.ParseKind(L.CheckString(1))
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		m.handlers[kind] = L.CheckFunction(2)
		return 0
	}))

	fn, err := L.Load(bytes.NewReader(src), name)
	if err != nil {
		L.Close()
		return nil, err
	}
	cancel := m.bound()
	L.Push(fn)
	err = L.PCall(0, lua.MultRet, nil)
	cancel()
	if err != nil {
		L.Close()
		return nil, err
	}
	if len(m.handlers) == 0 {
		L.Close()
		return nil, fmt.Errorf("lua mod registers no handlers")
	}
	return m, nil
}

func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the interpreter.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// bound applies the invocation timeout to L until the returned func runs.
func (m *luaMod) bound() func() {
	if m.timeout <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	m.L.SetContext(ctx)
	return func() {
		m.L.RemoveContext()
		cancel()
	}
}

func (m *luaMod) Kinds() []events.Kind {
	kinds := make([]events.Kind, 0, len(m.handlers))
	for k := range m.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func (m *luaMod) Handle(kind events.Kind, fields map[string]any) (events.Verdict, error) {
	fn, ok := m.handlers[kind]
	if !ok {
		return events.Continue, nil
	}
	cancel := m.bound()
	defer cancel()
	if err := m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, toLua(m.L, fields)); err != nil {
		return events.Continue, err
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return verdictOf(fromLua(ret)), nil
}

func (m *luaMod) Close() { m.L.Close() }

func toLua(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int64:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range v {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, item := range v {
			tbl.Append(toLua(L, item))
		}
		return tbl
	}
	return lua.LString(fmt.Sprint(v))
}

func fromLua(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return float64(v)
	}
	return nil
}
