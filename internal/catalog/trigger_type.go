package catalog

import "fmt"

// TriggerType identifies which trigger component is under test.
type TriggerType int

const (
	// InIce is the in-ice trigger component.
	InIce TriggerType = iota + 1

	// IceTop is the icetop trigger component.
	IceTop

	// Global is the global trigger component.
	Global
)

// AllTriggerTypes lists the trigger types in batch order.
var AllTriggerTypes = []TriggerType{InIce, IceTop, Global}

// String returns the human-readable component type used in status lines.
func (t TriggerType) String() string {
	switch t {
	case InIce:
		return "in-ice"
	case IceTop:
		return "icetop"
	case Global:
		return "global"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// FileType returns the abbreviation used in baseline file names.
func (t TriggerType) FileType() string {
	switch t {
	case InIce:
		return "iit"
	case IceTop:
		return "itt"
	case Global:
		return "glbl"
	default:
		return ""
	}
}

// Component returns the testbed component class name.
// Old components carry an "Old" prefix.
func (t TriggerType) Component(old bool) string {
	var name string
	switch t {
	case InIce:
		name = "IniceTriggerComponent"
	case IceTop:
		name = "IcetopTriggerComponent"
	case Global:
		name = "GlobalTriggerComponent"
	default:
		return ""
	}
	if old {
		return "Old" + name
	}
	return name
}

// ParseFileType maps a baseline file abbreviation back to a trigger type.
func ParseFileType(s string) (TriggerType, bool) {
	switch s {
	case "iit":
		return InIce, true
	case "itt":
		return IceTop, true
	case "glbl":
		return Global, true
	default:
		return 0, false
	}
}

// InConfig reports whether rc runs this trigger component.
// The global trigger is always present.
func (t TriggerType) InConfig(rc *RunConfig) bool {
	switch t {
	case InIce:
		return rc.InIce()
	case IceTop:
		return rc.IceTop()
	case Global:
		return true
	default:
		return false
	}
}

// MaxHubs returns the number of hubs feeding this trigger in rc.
func (t TriggerType) MaxHubs(rc *RunConfig) int {
	switch t {
	case InIce:
		return rc.InIceHubs()
	case IceTop:
		return rc.IceTopHubs()
	case Global:
		return rc.GlobalHubs()
	default:
		return 0
	}
}
