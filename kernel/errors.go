package kernel

// Error is the kernel's public error enum (spec §6/§7). It implements the
// error interface so callers can use errors.Is against the exported
// sentinels below, the way the teacher's sentinel-valued constants
// (badsignal, noescape, ...) are compared by identity in runtime2.go.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// NoError is returned by operations that do not fail; it is exported
	// only so callers can compare against it explicitly if they choose to
	// treat the zero Error value as meaningful.
	NoError Error = ""

	// ErrNotInitialized is returned when a kernel entry point other than
	// Initialize is called before Initialize has installed a current task.
	ErrNotInitialized Error = "kernel: not initialized"

	// ErrInvalidParameter is returned for a nil task function or
	// PriorityIdle passed to AddTask, a nil port or a capacity below 2
	// passed to Initialize, and a JoinTask on the caller itself or on a
	// task that was never registered. The length of a stack buffer is not
	// checked.
	ErrInvalidParameter Error = "kernel: invalid parameter"

	// ErrTimeout is returned when a bounded wait (Lock, Wait, JoinTask)
	// expires before the awaited condition becomes true. It is not a
	// failure at the domain level; callers distinguish success from
	// timeout via this value.
	ErrTimeout Error = "kernel: timeout"

	// ErrTooManyTasks is returned by AddTask when the task ring is already
	// at its configured capacity.
	ErrTooManyTasks Error = "kernel: too many tasks"

	// ErrResourceNotOwned is returned by Mutex.Unlock when the calling
	// task does not currently hold the mutex.
	ErrResourceNotOwned Error = "kernel: resource not owned"
)
