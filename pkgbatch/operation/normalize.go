package operation

// Option mutates an operation while it is being normalized.
type Option func(*PackageOperation)

// WithAction sets the desired action. The value is carried as-is; the
// compiler decides whether it is one it recognizes.
func WithAction(a Action) Option {
	return func(op *PackageOperation) {
		op.Action = a
	}
}

// WithPurge marks a removal as configuration-deleting.
func WithPurge() Option {
	return func(op *PackageOperation) {
		op.Purge = true
	}
}

// WithForce requests a forced install or upgrade. Only backends without a
// batching invocation honor it.
func WithForce() Option {
	return func(op *PackageOperation) {
		op.Force = true
	}
}

// WithEnable appends repositories to enable for this operation. A single
// scalar and a sequence both work; caller order is preserved.
func WithEnable(repos ...string) Option {
	return func(op *PackageOperation) {
		op.Enable = append(op.Enable, repos...)
	}
}

// WithDisable appends repositories to disable for this operation.
func WithDisable(repos ...string) Option {
	return func(op *PackageOperation) {
		op.Disable = append(op.Disable, repos...)
	}
}

// WithExclude appends package patterns the backend must leave untouched.
func WithExclude(patterns ...string) Option {
	return func(op *PackageOperation) {
		op.Exclude = append(op.Exclude, patterns...)
	}
}

// WithPriority sets the ordering key used when grouping operations.
// Lower values sort first; it is not an OS scheduling priority.
func WithPriority(p int) Option {
	return func(op *PackageOperation) {
		op.Priority = p
	}
}

// New builds a canonical operation for a package name with defaults applied:
// action install, priority 50. Package-name syntax is not validated here;
// the backend flags anything it cannot compile.
func New(name string, opts ...Option) PackageOperation {
	op := PackageOperation{
		Name:     name,
		Action:   Install,
		Priority: DefaultPriority,
	}
	for _, o := range opts {
		o(&op)
	}
	return op
}

// Normalize fills defaults on an operation decoded from a plan file, where
// zero values stand for "not given".
func Normalize(op PackageOperation) PackageOperation {
	if op.Action == "" {
		op.Action = Install
	}
	if op.Priority == 0 {
		op.Priority = DefaultPriority
	}
	return op
}
