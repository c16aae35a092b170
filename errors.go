package bpsim

// Error patterns returned by the selector. Test for them with curated.Is() or
// curated.Has().
const (
	// ConfigurationError wraps every error returned by Configure.
	ConfigurationError = "configuration error: %v"

	UnknownKind     = "unknown predictor kind: %s"
	UnknownDesign   = "unknown custom design: %s"
	StorageExceeded = "%s needs %d bits, budget is %d"
	BadSpec         = "bad predictor spec %q: %s"
)
