package kotlinpost

// Options names the packages and files involved in post-processing.
type Options struct {
	// SourcePackage is the package the compiler emitted, derived from the
	// schema namespace.
	SourcePackage string

	// TargetPackage replaces SourcePackage in every generated file.
	TargetPackage string

	// AliasPackage is the package of the alias file.
	AliasPackage string

	// AliasPrefix is prepended to each class name in the alias file.
	AliasPrefix string

	// AliasFile is the file name of the alias file.
	AliasFile string
}

// DefaultOptions returns the layout used by DexKit.
func DefaultOptions() Options {
	return Options{
		SourcePackage: "dexkit.schema",
		TargetPackage: "org.luckypray.dexkit.schema",
		AliasPackage:  "org.luckypray.dexkit",
		AliasPrefix:   "Inner",
		AliasFile:     "Alias.kt",
	}
}

// SourceDir returns the directory, relative to the compiler's output
// directory, that holds the SourcePackage files.
func (o Options) SourceDir() string {
	return packageDir(o.SourcePackage)
}
