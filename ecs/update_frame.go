package ecs

// UpdateFrame is passed to every system run by Scheduler.Once.
// Structural changes made while iterating queries go through Commands; they
// are flushed after the last system returns.
type UpdateFrame struct {
	DeltaTime float64
	Commands  *Commands
	Store     *Store
}

func newUpdateFrame(dt float64, store *Store, commands *Commands) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  commands,
		Store:     store,
	}
}
