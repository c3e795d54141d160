package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for combat formula execution.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory is not an error; every formula has a Go
// fallback.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "combat"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DamageContext holds pre-packed data for an action's damage calculation.
type DamageContext struct {
	ActionID int32
	Kind     string // "melee", "ranged", "area"
	Amount   int32  // configured base amount
}

// CalcDamage calls the Lua calc_damage function. Falls back to the base
// amount when the script is absent.
func (e *Engine) CalcDamage(ctx DamageContext) int32 {
	fn := e.vm.GetGlobal("calc_damage")
	if fn == lua.LNil {
		return ctx.Amount
	}

	tbl := e.vm.NewTable()
	tbl.RawSetString("action_id", lua.LNumber(ctx.ActionID))
	tbl.RawSetString("kind", lua.LString(ctx.Kind))
	tbl.RawSetString("amount", lua.LNumber(ctx.Amount))

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl); err != nil {
		e.log.Error("lua calc_damage failed", zap.Error(err))
		return ctx.Amount
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		return int32(n)
	}
	return ctx.Amount
}

// BuffEntry describes one active buff on the damage target.
type BuffEntry struct {
	ActionID int32
	Strength int32
}

// ModifyIncoming calls the Lua modify_incoming function: active buff
// instances on the target may scale incoming damage. amount is the positive
// damage magnitude. The Go fallback subtracts buff strength flat, floored
// at zero.
func (e *Engine) ModifyIncoming(amount int32, buffs []BuffEntry) int32 {
	fn := e.vm.GetGlobal("modify_incoming")
	if fn == lua.LNil {
		for _, b := range buffs {
			amount -= b.Strength
		}
		if amount < 0 {
			amount = 0
		}
		return amount
	}

	tbl := e.vm.NewTable()
	tbl.RawSetString("amount", lua.LNumber(amount))
	buffTbl := e.vm.NewTable()
	for i, b := range buffs {
		entry := e.vm.NewTable()
		entry.RawSetString("action_id", lua.LNumber(b.ActionID))
		entry.RawSetString("strength", lua.LNumber(b.Strength))
		buffTbl.RawSetInt(i+1, entry)
	}
	tbl.RawSetString("buffs", buffTbl)

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl); err != nil {
		e.log.Error("lua modify_incoming failed", zap.Error(err))
		return amount
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		v := int32(n)
		if v < 0 {
			v = 0
		}
		return v
	}
	return amount
}
