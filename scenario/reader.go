package scenario

import (
	"fmt"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"

	"github.com/samaelod/aileron/types"
)

// Scenario is a named set of initial flight conditions.
type Scenario struct {
	Name        string
	Description string
	Session     types.SessionConfig
}

// Read executes a Lua scenario file. The file returns a table whose keys
// name SessionConfig fields; absent keys read as zero.
func Read(path string) (*Scenario, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return nil, err
	}

	lv := L.Get(-1)
	table, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua file did not return a table")
	}

	var sc types.SessionConfig
	if err := gluamapper.Map(table, &sc); err != nil {
		return nil, err
	}

	s := &Scenario{
		Name:        lua.LVAsString(table.RawGetString("name")),
		Description: lua.LVAsString(table.RawGetString("description")),
		Session:     sc,
	}
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

func Validate(s *Scenario) error {
	if s.Session.Throttle < 0 || s.Session.Throttle > 100 {
		return fmt.Errorf("throttle %d out of range 0-100", s.Session.Throttle)
	}
	if s.Session.Speed < 0 {
		return fmt.Errorf("negative speed %v", s.Session.Speed)
	}
	return nil
}
