package profile

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// LuaAdapter implements Adapter by delegating to an embedded Lua
// interpreter loaded with a user-supplied profile script — the concrete
// binding to the "embedded scripting runtime" spec.md §1 scopes out of
// this module's internals, grounded on the pack's Lua runtime
// (wegman-software-osm2pgsql-go/internal/flex/runtime.go), adapted from
// osm2pgsql's table-definition API to this module's process_node /
// process_way / process_turn API (spec.md §6).
//
// Script contract (the global table `profile`):
//
//	profile = {}
//	function profile.process_node(tags) return { barrier=false, traffic_signal=false, classes=0 } end
//	function profile.process_way(tags, relations) return accept, { forward={...}, backward={...}, name=..., ... } end
//	function profile.process_turn(angle, from_class, to_class, barrier, signal) return weight, duration end
//	function profile.relations() return {"restriction"} end
//	function profile.restrictions() return {"no_left_turn", ...} end
//	function profile.class_names() return {"motorway", "trunk", ...} end
//	function profile.excludable_classes() return {} end
//	function profile.has_location_dependent_data() return true end
//	function profile.profile_properties() return {} end
type LuaAdapter struct {
	mu sync.Mutex
	L  *lua.LState

	processNode    lua.LValue
	processWay     lua.LValue
	processTurn    lua.LValue
	relations      lua.LValue
	restrictions   lua.LValue
	classNames     lua.LValue
	excludableCls  lua.LValue
	hasLocDep      lua.LValue
	profileProps   lua.LValue
}

// NewLuaAdapter loads path and extracts the profile table's callbacks.
func NewLuaAdapter(path string) (*LuaAdapter, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	a := &LuaAdapter{L: L}
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("load lua profile %s: %w", path, err)
	}
	a.bind()
	return a, nil
}

// NewLuaAdapterFromString loads Lua source directly, for tests.
func NewLuaAdapterFromString(src string) (*LuaAdapter, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	a := &LuaAdapter{L: L}
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("load lua profile: %w", err)
	}
	a.bind()
	return a, nil
}

func (a *LuaAdapter) bind() {
	tbl := a.L.GetGlobal("profile")
	t, ok := tbl.(*lua.LTable)
	if !ok {
		return
	}
	a.processNode = t.RawGetString("process_node")
	a.processWay = t.RawGetString("process_way")
	a.processTurn = t.RawGetString("process_turn")
	a.relations = t.RawGetString("relations")
	a.restrictions = t.RawGetString("restrictions")
	a.classNames = t.RawGetString("class_names")
	a.excludableCls = t.RawGetString("excludable_classes")
	a.hasLocDep = t.RawGetString("has_location_dependent_data")
	a.profileProps = t.RawGetString("profile_properties")
}

// Close releases the Lua interpreter.
func (a *LuaAdapter) Close() { a.L.Close() }

func tagsToLua(L *lua.LState, tags map[string]string) *lua.LTable {
	t := L.NewTable()
	for k, v := range tags {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}

func isCallable(v lua.LValue) bool {
	return v != nil && v.Type() == lua.LTFunction
}

func (a *LuaAdapter) ProcessNode(tags map[string]string) (ExtractionNode, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !isCallable(a.processNode) {
		return ExtractionNode{}, nil
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: a.processNode, NRet: 1, Protect: true}, tagsToLua(L, tags)); err != nil {
		return ExtractionNode{}, fmt.Errorf("process_node: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	out := ExtractionNode{}
	if t, ok := ret.(*lua.LTable); ok {
		out.Barrier = lua.LVAsBool(t.RawGetString("barrier"))
		out.TrafficSignal = lua.LVAsBool(t.RawGetString("traffic_signal"))
		if n, ok := t.RawGetString("classes").(lua.LNumber); ok {
			out.Classes = uint32(n)
		}
	}
	return out, nil
}

func relationContextToLua(L *lua.LState, ctx RelationContext) *lua.LTable {
	t := L.NewTable()
	for i, m := range ctx.Relations {
		mt := L.NewTable()
		mt.RawSetString("id", lua.LNumber(m.RelationID))
		mt.RawSetString("role", lua.LString(m.Role))
		tagsT := L.NewTable()
		for k, v := range m.Tags {
			tagsT.RawSetString(k, lua.LString(v))
		}
		mt.RawSetString("tags", tagsT)
		t.RawSetInt(i+1, mt)
	}
	return t
}

func directionFromLua(t *lua.LTable, key string) DirectionAttrs {
	v := t.RawGetString(key)
	dt, ok := v.(*lua.LTable)
	if !ok {
		return DirectionAttrs{}
	}
	d := DirectionAttrs{}
	d.Enabled = lua.LVAsBool(dt.RawGetString("enabled"))
	if n, ok := dt.RawGetString("speed").(lua.LNumber); ok {
		d.SpeedKPH = float64(n)
	}
	if n, ok := dt.RawGetString("duration").(lua.LNumber); ok {
		d.Duration = float64(n)
	}
	return d
}

func (a *LuaAdapter) ProcessWay(tags map[string]string, ctx RelationContext) (ExtractionWay, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !isCallable(a.processWay) {
		return ExtractionWay{}, false, nil
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: a.processWay, NRet: 2, Protect: true}, tagsToLua(L, tags), relationContextToLua(L, ctx)); err != nil {
		return ExtractionWay{}, false, fmt.Errorf("process_way: %w", err)
	}
	result := L.Get(-1)
	accept := L.Get(-2)
	L.Pop(2)

	ok := lua.LVAsBool(accept)
	if !ok {
		return ExtractionWay{}, false, nil
	}
	t, isTable := result.(*lua.LTable)
	if !isTable {
		return ExtractionWay{}, false, nil
	}
	w := ExtractionWay{
		Forward:  directionFromLua(t, "forward"),
		Backward: directionFromLua(t, "backward"),
		Roundabout: lua.LVAsBool(t.RawGetString("roundabout")),
		StartpointEligible: true,
	}
	if n, ok := t.RawGetString("class_mask").(lua.LNumber); ok {
		w.ClassMask = uint32(n)
	}
	if n, ok := t.RawGetString("lane_description_id").(lua.LNumber); ok {
		w.LaneDescriptionID = uint32(n)
	}
	if s, ok := t.RawGetString("name").(lua.LString); ok {
		w.Names.Name = string(s)
	}
	if s, ok := t.RawGetString("ref").(lua.LString); ok {
		w.Names.Ref = string(s)
	}
	if s, ok := t.RawGetString("destinations").(lua.LString); ok {
		w.Names.Destinations = string(s)
	}
	if s, ok := t.RawGetString("pronunciation").(lua.LString); ok {
		w.Names.Pronunciation = string(s)
	}
	return w, true, nil
}

func (a *LuaAdapter) ProcessTurn(angleDegrees float64, fromClass, toClass uint32, flags TurnFlags) (float64, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !isCallable(a.processTurn) {
		return 0, 0
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: a.processTurn, NRet: 2, Protect: true},
		lua.LNumber(angleDegrees), lua.LNumber(fromClass), lua.LNumber(toClass),
		lua.LBool(flags.Barrier), lua.LBool(flags.TrafficSignal)); err != nil {
		return 0, 0
	}
	duration := L.Get(-1)
	weight := L.Get(-2)
	L.Pop(2)
	w, _ := weight.(lua.LNumber)
	d, _ := duration.(lua.LNumber)
	return float64(w), float64(d)
}

func (a *LuaAdapter) callStringList(fn lua.LValue) []string {
	if !isCallable(fn) {
		return nil
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	t, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	t.ForEach(func(_, v lua.LValue) {
		if s, ok := v.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}

func (a *LuaAdapter) Relations() []string    { return a.callStringList(a.relations) }
func (a *LuaAdapter) Restrictions() []string { return a.callStringList(a.restrictions) }
func (a *LuaAdapter) ClassNames() []string   { return a.callStringList(a.classNames) }

func (a *LuaAdapter) ExcludableClasses() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !isCallable(a.excludableCls) {
		return nil
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: a.excludableCls, NRet: 1, Protect: true}); err != nil {
		return nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	outer, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}
	var out [][]string
	outer.ForEach(func(_, v lua.LValue) {
		inner, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		var combo []string
		inner.ForEach(func(_, iv lua.LValue) {
			if s, ok := iv.(lua.LString); ok {
				combo = append(combo, string(s))
			}
		})
		out = append(out, combo)
	})
	return out
}

func (a *LuaAdapter) HasLocationDependentData() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !isCallable(a.hasLocDep) {
		return true
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: a.hasLocDep, NRet: 1, Protect: true}); err != nil {
		return true
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret)
}

func (a *LuaAdapter) ProfileProperties() ProfileProperties {
	a.mu.Lock()
	defer a.mu.Unlock()
	props := ProfileProperties{}
	if !isCallable(a.profileProps) {
		return props
	}
	L := a.L
	if err := L.CallByParam(lua.P{Fn: a.profileProps, NRet: 1, Protect: true}); err != nil {
		return props
	}
	ret := L.Get(-1)
	L.Pop(1)
	t, ok := ret.(*lua.LTable)
	if !ok {
		return props
	}
	t.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch vv := v.(type) {
		case lua.LString:
			props[string(key)] = string(vv)
		case lua.LNumber:
			props[string(key)] = float64(vv)
		case lua.LBool:
			props[string(key)] = bool(vv)
		}
	})
	return props
}

var _ Adapter = (*LuaAdapter)(nil)
var _ Adapter = (*StaticAdapter)(nil)
