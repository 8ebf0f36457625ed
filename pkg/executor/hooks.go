package executor

import "github.com/openlh/aliquot/pkg/domain"

// Hooks receive command lifecycle notifications. Nil members are skipped.
// Hooks run synchronously on the execution goroutine; keep them fast.
type Hooks struct {
	// OnCommand fires before a command is dispatched to the instrument.
	OnCommand func(cmd domain.Command)
	// OnResult fires after the instrument call returns.
	OnResult func(cmd domain.Command, err error)
}

// Combine fans notifications out to several hook sets in order. Metrics
// and trace recording stay separate concerns this way.
func Combine(hooks ...Hooks) Hooks {
	return Hooks{
		OnCommand: func(cmd domain.Command) {
			for _, h := range hooks {
				if h.OnCommand != nil {
					h.OnCommand(cmd)
				}
			}
		},
		OnResult: func(cmd domain.Command, err error) {
			for _, h := range hooks {
				if h.OnResult != nil {
					h.OnResult(cmd, err)
				}
			}
		},
	}
}
