package h5

// Version is written to the root of every file created in write mode.
const Version = "0.4.0"

// VersionAttr is the root attribute holding the version of the writer.
const VersionAttr = "pymodaq_version"

// Options configures a Storage.
type Options struct {
	// ClassRepair writes CLASS=GROUP onto nodes that have no CLASS attribute
	// when they are first resolved. It never happens on read-only files.
	ClassRepair bool
	// Version is stored in the root VersionAttr attribute of new files.
	Version string
}

// Option modifies Options.
type Option func(*Options)

// DefaultOptions returns the options used when New gets none.
func DefaultOptions() Options {
	return Options{
		ClassRepair: true,
		Version:     Version,
	}
}

// WithClassRepair enables or disables the CLASS repair on first access.
func WithClassRepair(enabled bool) Option {
	return func(o *Options) {
		o.ClassRepair = enabled
	}
}

// WithVersion overrides the version string written to new files.
func WithVersion(version string) Option {
	return func(o *Options) {
		o.Version = version
	}
}
