package idomysql

// ToggleState is the feature's enablement state, observed before and
// declared after a pass.
type ToggleState int

const (
	ToggleDisabled ToggleState = iota
	ToggleEnabled
)

func (s ToggleState) String() string {
	if s == ToggleEnabled {
		return "enabled"
	}
	return "disabled"
}

// ShouldNotify decides whether the pass fires the reload. A reload is due
// only when the feature ends up enabled and either it was just enabled or
// its reload-relevant content changed. Disabling never reloads.
func ShouldNotify(prev, next ToggleState, contentChanged bool) bool {
	if next != ToggleEnabled {
		return false
	}
	return prev != ToggleEnabled || contentChanged
}
