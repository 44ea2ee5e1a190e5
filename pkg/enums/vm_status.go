package enums

import "fmt"

// VMStatus reflects the lifecycle state of a virtual machine.
type VMStatus string

const (
	VMStatusRunning   VMStatus = "running"
	VMStatusStopped   VMStatus = "stopped"
	VMStatusSuspended VMStatus = "suspended"
)

var validVMStatuses = []VMStatus{
	VMStatusRunning,
	VMStatusStopped,
	VMStatusSuspended,
}

// String implements fmt.Stringer.
func (v VMStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VMStatus.
func (v VMStatus) IsValid() bool {
	for _, candidate := range validVMStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVMStatus converts raw input into a VMStatus.
func ParseVMStatus(value string) (VMStatus, error) {
	for _, candidate := range validVMStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vm status %q", value)
}
