package domain

// CanViewVisit decides read access. Supervisors see everything; volunteers see
// open missions, missions claimed by them and visits they settled.
func CanViewVisit(actor Actor, v Visit) bool {
	if actor.Role.IsSupervisor() {
		return true
	}
	if v.IsPlanned() {
		return v.IsOpenMission() || v.IsAssignedTo(actor.ID)
	}
	return v.Completer() == actor.ID
}

// CanCompleteVisit decides whether the actor may run the completion transition.
// It does not look at status beyond PLANNED; callers report AlreadyCompleted
// separately.
func CanCompleteVisit(actor Actor, v Visit) bool {
	if actor.Role.IsSupervisor() {
		return true
	}
	return v.IsPlanned() && (v.IsOpenMission() || v.IsAssignedTo(actor.ID))
}

// IsMine reports whether the visit belongs in the actor's "my visits" list.
func IsMine(actor Actor, v Visit) bool {
	if v.IsPlanned() {
		return v.IsOpenMission() || v.IsAssignedTo(actor.ID)
	}
	return v.Completer() == actor.ID
}
