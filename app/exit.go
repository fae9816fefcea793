package app

// Exit is the shutdown request resource. A system that sets it stops Run
// after the current tick completes.
type Exit struct {
	Requested bool
	Reason    string
}

func (e *Exit) Request(reason string) {
	if e.Requested {
		return
	}
	e.Requested = true
	e.Reason = reason
}
