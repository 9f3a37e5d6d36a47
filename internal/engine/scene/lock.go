package scene

// LockProperties lists the properties toggled by Lock and Unlock.
var LockProperties = []string{
	PropLockMovementX,
	PropLockMovementY,
	PropLockRotation,
	PropLockScalingX,
	PropLockScalingY,
	PropHasControls,
}

// Lock prevents the object from being moved, rotated or scaled.
func Lock(o *Object) {
	setLocked(o, true)
}

// Unlock reverses Lock.
func Unlock(o *Object) {
	setLocked(o, false)
}

func setLocked(o *Object, locked bool) {
	o.Set(PropLockMovementX, locked)
	o.Set(PropLockMovementY, locked)
	o.Set(PropLockRotation, locked)
	o.Set(PropLockScalingX, locked)
	o.Set(PropLockScalingY, locked)
	o.Set(PropHasControls, !locked)
}
